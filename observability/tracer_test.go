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

package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCallTracerSnapshot(t *testing.T) {
	root := metrics.New()
	tags := metrics.Tags{"component": "server"}
	tracer := NewCallTracer(zap.NewNop(), root.Scope(), tags)

	// Three calls: two succeed, one fails, one still in flight.
	tracer.ReportCallStarted()
	tracer.ReportCallEnded(true)
	tracer.ReportCallStarted()
	tracer.ReportCallEnded(true)
	tracer.ReportCallStarted()
	tracer.ReportCallEnded(false)
	tracer.ReportCallStarted()

	snap := root.Snapshot()
	assert.Equal(t, []metrics.Snapshot{
		{Name: "server_call_failures", Value: 1, Tags: tags},
		{Name: "server_call_successes", Value: 2, Tags: tags},
		{Name: "server_calls", Value: 4, Tags: tags},
	}, snap.Counters)
	assert.Equal(t, []metrics.Snapshot{
		{Name: "server_calls_in_flight", Value: 1, Tags: tags},
	}, snap.Gauges)
}

func TestCallTracerRegistrationFailureIsInert(t *testing.T) {
	root := metrics.New()
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)

	first := NewCallTracer(logger, root.Scope(), nil)
	assert.Zero(t, logs.Len())

	// Re-registering the same names on the same scope fails; the resulting
	// tracer must still be safe to use.
	second := NewCallTracer(logger, root.Scope(), nil)
	assert.NotZero(t, logs.Len())
	assert.NotPanics(t, func() {
		second.ReportCallStarted()
		second.ReportCallEnded(true)
	})

	first.ReportCallStarted()
	first.ReportCallEnded(false)
	counters := make(map[string]int64)
	for _, c := range root.Snapshot().Counters {
		counters[c.Name] = c.Value
	}
	assert.Equal(t, map[string]int64{
		"server_call_failures":  1,
		"server_call_successes": 0,
		"server_calls":          1,
	}, counters)
}
