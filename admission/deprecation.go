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

package admission

import (
	"sync"
	"time"

	"github.com/marlinrpc/marlin/internal/clock"
	"go.uber.org/zap"
)

// DefaultDeprecationWindow is how long the notifier stays quiet about an
// interface after warning about it.
const DefaultDeprecationWindow = 24 * time.Hour

// DeprecationNotifier warns, at most once per interface per window, that a
// deprecated interface is still being invoked.
//
// The last-warned map is read and then written without cross-call
// coordination. Concurrent invocations for the same interface inside the
// window may each emit a line; duplicate diagnostics are an accepted
// trade-off against synchronizing every call on a purely diagnostic path.
type DeprecationNotifier struct {
	logger *zap.Logger
	clock  clock.Clock
	window time.Duration

	lastWarned sync.Map // interface name -> time.Time
}

// NotifierOption configures a DeprecationNotifier.
type NotifierOption func(*DeprecationNotifier)

// NotifierWindow overrides the quiet window between warnings for one
// interface.
func NotifierWindow(window time.Duration) NotifierOption {
	return func(n *DeprecationNotifier) {
		n.window = window
	}
}

// NotifierClock overrides the notifier's time source.
func NotifierClock(c clock.Clock) NotifierOption {
	return func(n *DeprecationNotifier) {
		n.clock = c
	}
}

// NewDeprecationNotifier builds a notifier emitting through the given
// logger.
func NewDeprecationNotifier(logger *zap.Logger, opts ...NotifierOption) *DeprecationNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &DeprecationNotifier{
		logger: logger,
		clock:  clock.NewReal(),
		window: DefaultDeprecationWindow,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// MaybeWarn emits a deprecation warning for the interface unless one was
// already emitted inside the current window. A no-op when deprecated is
// false.
func (n *DeprecationNotifier) MaybeWarn(service string, deprecated bool) {
	if !deprecated {
		return
	}

	now := n.clock.Now()
	if v, ok := n.lastWarned.Load(service); ok {
		if now.Sub(v.(time.Time)) < n.window {
			return
		}
	}

	n.logger.Warn(
		"Deprecated service invoked. Check whether a replacement service has been deployed.",
		zap.String("service", service),
	)
	n.lastWarned.Store(service, now)
}
