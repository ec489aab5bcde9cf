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

package transport

import (
	"context"
	"sync"
)

// CancellableContext is the execution scope of one inbound call. It extends
// context.Context with a synchronous cancellation subscription: listeners
// run in the goroutine that calls Cancel, before the underlying context is
// cancelled, so any state a listener publishes is visible by the time the
// context reports Done.
//
// Cancellation by an ancestor context does not run the listeners; the call
// layer always terminates a call through Cancel.
type CancellableContext struct {
	context.Context

	cancel context.CancelCauseFunc

	mu        sync.Mutex
	cancelled bool
	listeners []func()
}

// NewCancellableContext derives a cancellable call scope from parent.
func NewCancellableContext(parent context.Context) *CancellableContext {
	ctx, cancel := context.WithCancelCause(parent)
	return &CancellableContext{
		Context: ctx,
		cancel:  cancel,
	}
}

// AddListener registers f to run synchronously when Cancel is first called.
// If the scope is already cancelled, f runs immediately in the calling
// goroutine.
func (c *CancellableContext) AddListener(f func()) {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		f()
		return
	}
	c.listeners = append(c.listeners, f)
	c.mu.Unlock()
}

// Cancel cancels the scope with the given cause. Registered listeners run
// first, in registration order, in the calling goroutine. Calls after the
// first are no-ops.
func (c *CancellableContext) Cancel(cause error) {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	listeners := c.listeners
	c.listeners = nil
	c.mu.Unlock()

	for _, f := range listeners {
		f()
	}
	c.cancel(cause)
}
