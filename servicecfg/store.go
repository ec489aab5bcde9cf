// Copyright (c) 2025 The marlin Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package servicecfg

import (
	"fmt"
	"io"

	"github.com/uber-go/mapdecode"
	"go.uber.org/atomic"
	"gopkg.in/yaml.v2"
)

const _tagName = "config"

// Store is a Provider backed by an atomically swapped snapshot. Updates
// replace the whole snapshot; readers never block.
//
// Lowering a limit does not evict calls already admitted against the old
// one; it only blocks new admissions until in-flight calls drain.
type Store struct {
	snapshot atomic.Value // map[string]ServiceConfig
}

var _ Provider = (*Store)(nil)

// NewStore returns an empty Store. Every interface reports NoLimit and not
// deprecated until configuration is loaded.
func NewStore() *Store {
	s := &Store{}
	s.snapshot.Store(map[string]ServiceConfig{})
	return s
}

// LoadYAML parses a YAML document mapping fully qualified interface names to
// service configuration blocks and swaps it in as the current snapshot:
//
//	com.example.orders.OrderService:
//	  deprecated: true
//	  max-requests: 50
//
// Calling LoadYAML again with fresh contents is how configuration
// hot-reloads.
func (s *Store) LoadYAML(r io.Reader) error {
	var raw map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("failed to parse service configuration: %v", err)
	}

	services := make(map[string]ServiceConfig, len(raw))
	if err := mapdecode.Decode(&services, raw, mapdecode.TagName(_tagName)); err != nil {
		return fmt.Errorf("failed to decode service configuration: %v", err)
	}

	s.snapshot.Store(services)
	return nil
}

// Update replaces the current snapshot with the given per-interface
// configuration.
func (s *Store) Update(services map[string]ServiceConfig) {
	copied := make(map[string]ServiceConfig, len(services))
	for name, cfg := range services {
		copied[name] = cfg
	}
	s.snapshot.Store(copied)
}

// ServiceConfig returns the configuration of the named interface.
func (s *Store) ServiceConfig(service string) (ServiceConfig, bool) {
	cfg, ok := s.current()[service]
	return cfg, ok
}

// MaxRequests returns the concurrent request limit of the named interface.
// Unconfigured interfaces, and configured limits of zero or less, report
// NoLimit.
func (s *Store) MaxRequests(service string) int {
	cfg, ok := s.current()[service]
	if !ok || cfg.MaxRequests <= 0 {
		return NoLimit
	}
	return cfg.MaxRequests
}

func (s *Store) current() map[string]ServiceConfig {
	return s.snapshot.Load().(map[string]ServiceConfig)
}
