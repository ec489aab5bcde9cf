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

// Package admission provides per-interface admission control for inbound
// calls, plus rate-limited notification when deprecated interfaces are
// invoked.
package admission

import (
	"sync"

	"github.com/marlinrpc/marlin/servicecfg"
	"go.uber.org/atomic"
)

// Controller enforces per-interface concurrent request limits. Limits come
// from the configuration provider at admission time and may change at
// runtime; in-flight counters live for the controller's lifetime.
//
// A Controller is an explicitly constructed registry owned by one server
// instance, so independent servers (and tests) never share counters.
type Controller struct {
	provider servicecfg.Provider

	mu      sync.RWMutex
	records map[string]*record
}

// record holds the live in-flight count of one interface. Counters are
// per-interface so unrelated interfaces never contend on admission.
type record struct {
	inFlight atomic.Int64
}

// NewController builds an admission controller reading limits from the
// given provider.
func NewController(provider servicecfg.Provider) *Controller {
	return &Controller{
		provider: provider,
		records:  make(map[string]*record),
	}
}

// Limit returns the configured maximum in-flight requests for the
// interface, or servicecfg.NoLimit. The value reflects the provider's
// current configuration, which may change between calls.
func (c *Controller) Limit(service string) int {
	return c.provider.MaxRequests(service)
}

// TryAdmit attempts to admit one call for the interface. Unlimited
// interfaces always admit. Otherwise the in-flight count is advanced only if
// it is below the limit; at or above, TryAdmit reports false without
// mutating, and no Release is owed.
//
// Safe under arbitrary concurrent invocation for the same and different
// interfaces. A limit lowered concurrently with an admission either admits
// cleanly against the limit read here or fails cleanly; no phantom
// increment is left behind either way.
func (c *Controller) TryAdmit(service string) bool {
	limit := c.provider.MaxRequests(service)
	if limit == servicecfg.NoLimit {
		return true
	}

	r := c.record(service)
	for {
		current := r.inFlight.Load()
		if current >= int64(limit) {
			return false
		}
		if r.inFlight.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release returns the slot taken by a successful TryAdmit. Callers must call
// it at most once per admission. A Release with no matching admission floors
// at zero rather than corrupting the count.
func (c *Controller) Release(service string) {
	r := c.record(service)
	for {
		current := r.inFlight.Load()
		if current <= 0 {
			return
		}
		if r.inFlight.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// InFlight reports the current in-flight count for the interface.
func (c *Controller) InFlight(service string) int64 {
	return c.record(service).inFlight.Load()
}

func (c *Controller) record(service string) *record {
	c.mu.RLock()
	r, ok := c.records[service]
	c.mu.RUnlock()
	if ok {
		return r
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.records[service]; ok {
		// Someone beat us to the punch.
		return r
	}
	r = &record{}
	c.records[service] = r
	return r
}
