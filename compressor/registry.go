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

// Package compressor provides the registry of compression strategies a
// server negotiates from, plus the identity (no-op) strategy.
package compressor

import (
	"sync"

	"github.com/marlinrpc/marlin/api/transport"
)

// Registry is an injectable set of compression strategies. Each server owns
// its own registry rather than sharing process-global state, so tests and
// co-resident server instances stay independent.
type Registry struct {
	mu         sync.RWMutex
	byName     map[string]transport.Compressor
	advertised []string // names in registration order
}

// NewRegistry builds a registry holding the given strategies.
func NewRegistry(compressors ...transport.Compressor) *Registry {
	r := &Registry{byName: make(map[string]transport.Compressor, len(compressors))}
	for _, c := range compressors {
		r.Register(c)
	}
	return r
}

// Register adds a strategy, replacing any previous strategy with the same
// name.
func (r *Registry) Register(compressor transport.Compressor) {
	name := compressor.Name()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; !exists {
		r.advertised = append(r.advertised, name)
	}
	r.byName[name] = compressor
}

// Lookup returns the strategy registered under name.
func (r *Registry) Lookup(name string) (transport.Compressor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// AdvertisedNames returns the names of every registered strategy in
// registration order. This is the set a server advertises as its supported
// decoder encodings; identity is implied and not listed unless registered.
func (r *Registry) AdvertisedNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.advertised))
	copy(names, r.advertised)
	return names
}
