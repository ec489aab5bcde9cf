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

// Package observability provides the metrics-backed call tracer wired into
// the server call layer.
package observability

import (
	"github.com/marlinrpc/marlin/api/transport"
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

// CallTracer accounts for call lifetimes on a metrics scope: total calls
// started, successes, failures, and an in-flight gauge.
type CallTracer struct {
	calls     *metrics.Counter
	successes *metrics.Counter
	failures  *metrics.Counter
	inFlight  *metrics.Gauge
}

var _ transport.CallTracer = (*CallTracer)(nil)

// NewCallTracer builds a tracer registering its instruments on the given
// scope. Registration failures are logged and leave the corresponding
// instrument inert; they never fail call processing.
func NewCallTracer(logger *zap.Logger, meter *metrics.Scope, constTags metrics.Tags) *CallTracer {
	if logger == nil {
		logger = zap.NewNop()
	}

	calls, err := meter.Counter(metrics.Spec{
		Name:      "server_calls",
		Help:      "Total number of inbound calls.",
		ConstTags: constTags,
	})
	if err != nil {
		logger.Error("Failed to create calls counter.", zap.Error(err))
	}
	successes, err := meter.Counter(metrics.Spec{
		Name:      "server_call_successes",
		Help:      "Number of inbound calls that closed with an OK status.",
		ConstTags: constTags,
	})
	if err != nil {
		logger.Error("Failed to create successes counter.", zap.Error(err))
	}
	failures, err := meter.Counter(metrics.Spec{
		Name:      "server_call_failures",
		Help:      "Number of inbound calls that closed with a non-OK status.",
		ConstTags: constTags,
	})
	if err != nil {
		logger.Error("Failed to create failures counter.", zap.Error(err))
	}
	inFlight, err := meter.Gauge(metrics.Spec{
		Name:      "server_calls_in_flight",
		Help:      "Number of inbound calls currently in flight.",
		ConstTags: constTags,
	})
	if err != nil {
		logger.Error("Failed to create in-flight gauge.", zap.Error(err))
	}

	return &CallTracer{
		calls:     calls,
		successes: successes,
		failures:  failures,
		inFlight:  inFlight,
	}
}

// ReportCallStarted records the start of one call.
func (t *CallTracer) ReportCallStarted() {
	t.calls.Inc()
	t.inFlight.Inc()
}

// ReportCallEnded records the completion of one call.
func (t *CallTracer) ReportCallEnded(succeeded bool) {
	t.inFlight.Dec()
	if succeeded {
		t.successes.Inc()
	} else {
		t.failures.Inc()
	}
}
