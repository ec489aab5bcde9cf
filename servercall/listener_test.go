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

package servercall

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/marlinrpc/marlin/admission"
	"github.com/marlinrpc/marlin/api/transport"
	"github.com/marlinrpc/marlin/marlinerrors"
	"github.com/marlinrpc/marlin/servicecfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCallListener struct {
	messages     []interface{}
	onMessageErr error
	halfClosed   int
	completed    int
	cancelled    int
	readies      int

	// Invoked from OnComplete and OnCancel before they count, so tests can
	// observe state mid-callback.
	onTerminal func()
}

var _ transport.CallListener = (*fakeCallListener)(nil)

func (l *fakeCallListener) OnMessage(message interface{}) error {
	l.messages = append(l.messages, message)
	return l.onMessageErr
}

func (l *fakeCallListener) OnHalfClose() error { l.halfClosed++; return nil }

func (l *fakeCallListener) OnComplete() {
	if l.onTerminal != nil {
		l.onTerminal()
	}
	l.completed++
}

func (l *fakeCallListener) OnCancel() {
	if l.onTerminal != nil {
		l.onTerminal()
	}
	l.cancelled++
}

func (l *fakeCallListener) OnReady() { l.readies++ }

type trackedMessage struct {
	io.Reader
	closed bool
}

func (m *trackedMessage) Close() error { m.closed = true; return nil }

type fakeProducer struct {
	queue  []*trackedMessage
	closed bool
}

var _ transport.MessageProducer = (*fakeProducer)(nil)

func newFakeProducer(bodies ...string) *fakeProducer {
	p := &fakeProducer{}
	for _, body := range bodies {
		p.queue = append(p.queue, &trackedMessage{Reader: strings.NewReader(body)})
	}
	return p
}

func (p *fakeProducer) Next() io.ReadCloser {
	if len(p.queue) == 0 {
		return nil
	}
	next := p.queue[0]
	p.queue = p.queue[1:]
	return next
}

func (p *fakeProducer) Close() error { p.closed = true; return nil }

type listenerFixture struct {
	*callFixture
	bridge transport.StreamListener
	app    *fakeCallListener
}

func newListenerFixture(mutateCall func(*CallParams), mutateParams func(*StreamListenerParams)) *listenerFixture {
	f := &listenerFixture{
		callFixture: newCallFixture(mutateCall),
		app:         &fakeCallListener{},
	}
	params := StreamListenerParams{Listener: f.app}
	if mutateParams != nil {
		mutateParams(&params)
	}
	f.bridge = f.call.NewStreamListener(params)
	return f
}

func newLimitedServices(service string, limit int, deprecated bool) *servicecfg.Store {
	store := servicecfg.NewStore()
	store.Update(map[string]servicecfg.ServiceConfig{
		service: {MaxRequests: limit, Deprecated: deprecated},
	})
	return store
}

func TestMessagesAvailableDeliversInOrder(t *testing.T) {
	f := newListenerFixture(nil, nil)
	producer := newFakeProducer("first", "second")
	messages := []*trackedMessage{producer.queue[0], producer.queue[1]}

	require.NoError(t, f.bridge.MessagesAvailable(producer))

	assert.Equal(t, []interface{}{"first", "second"}, f.app.messages)
	for _, m := range messages {
		assert.True(t, m.closed, "each message is released after processing")
	}
}

func TestMessagesAvailableAfterCancellationDiscards(t *testing.T) {
	f := newListenerFixture(nil, nil)
	f.ctx.Cancel(nil)
	require.True(t, f.call.IsCancelled())

	producer := newFakeProducer("stale")
	require.NoError(t, f.bridge.MessagesAvailable(producer))

	assert.True(t, producer.closed)
	assert.Empty(t, f.app.messages)
}

func TestMessagesAvailableDecodeFailure(t *testing.T) {
	f := newListenerFixture(nil, nil)
	f.codec.unmarshalErr = errors.New("truncated frame")

	producer := newFakeProducer("first", "second")
	bad := producer.queue[0]

	err := f.bridge.MessagesAvailable(producer)
	require.Error(t, err)
	assert.ErrorIs(t, err, f.codec.unmarshalErr)

	assert.True(t, bad.closed, "the failing message is still released")
	assert.True(t, producer.closed, "unconsumed messages are released with the producer")
	assert.Empty(t, f.app.messages)
}

func TestMessagesAvailableListenerFailure(t *testing.T) {
	f := newListenerFixture(nil, nil)
	f.app.onMessageErr = errors.New("handler rejected message")

	producer := newFakeProducer("first", "second")
	err := f.bridge.MessagesAvailable(producer)
	require.Error(t, err)
	assert.ErrorIs(t, err, f.app.onMessageErr)
	assert.True(t, producer.closed)
	assert.Len(t, f.app.messages, 1)
}

func TestHalfClosedForwards(t *testing.T) {
	f := newListenerFixture(nil, nil)
	require.NoError(t, f.bridge.HalfClosed())
	assert.Equal(t, 1, f.app.halfClosed)
}

func TestHalfClosedAfterCancellationIsNoop(t *testing.T) {
	f := newListenerFixture(nil, nil)
	f.ctx.Cancel(nil)
	require.NoError(t, f.bridge.HalfClosed())
	assert.Zero(t, f.app.halfClosed)
}

func TestHalfClosedWarnsAboutDeprecatedInterface(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	services := newLimitedServices("Orders.Get", servicecfg.NoLimit, true)

	f := newListenerFixture(nil, func(p *StreamListenerParams) {
		p.Deprecation = admission.NewDeprecationNotifier(zap.New(core))
		p.Services = services
	})
	require.NoError(t, f.bridge.HalfClosed())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Orders.Get", logs.All()[0].ContextMap()["service"])
	assert.Equal(t, 1, f.app.halfClosed, "a deprecation notice does not block the call")
}

func TestHalfClosedAdmitsWithinLimit(t *testing.T) {
	services := newLimitedServices("Orders.Get", 1, false)
	controller := admission.NewController(services)

	f := newListenerFixture(nil, func(p *StreamListenerParams) {
		p.Admission = controller
		p.Services = services
	})
	require.NoError(t, f.bridge.HalfClosed())

	assert.Equal(t, 1, f.app.halfClosed)
	assert.Equal(t, int64(1), controller.InFlight("Orders.Get"))
}

func TestHalfClosedRejectsOverLimit(t *testing.T) {
	services := newLimitedServices("Orders.Get", 1, false)
	controller := admission.NewController(services)
	require.True(t, controller.TryAdmit("Orders.Get"), "occupy the only slot")

	f := newListenerFixture(nil, func(p *StreamListenerParams) {
		p.Admission = controller
		p.Services = services
	})
	require.NoError(t, f.bridge.HalfClosed(), "rejection is not a transport error")

	assert.Zero(t, f.app.halfClosed, "the application never sees a rejected call")
	require.True(t, f.stream.closed)
	require.Equal(t, marlinerrors.CodeInternal, f.stream.closeStatus.Code())
	assert.Contains(t, f.stream.closeStatus.Message(), "Orders.Get")
	assert.Contains(t, f.stream.closeStatus.Message(), "[1]")

	// The rejected call never took a slot, so its termination releases none.
	f.bridge.Closed(f.stream.closeStatus)
	assert.Equal(t, int64(1), controller.InFlight("Orders.Get"))
}

func TestHalfClosedUnlimitedInterfaceSkipsCounting(t *testing.T) {
	services := servicecfg.NewStore()
	controller := admission.NewController(services)

	f := newListenerFixture(nil, func(p *StreamListenerParams) {
		p.Admission = controller
		p.Services = services
	})
	require.NoError(t, f.bridge.HalfClosed())

	assert.Equal(t, 1, f.app.halfClosed)
	assert.Zero(t, controller.InFlight("Orders.Get"))
}

func TestClosedOKCompletesBeforeContextCancellation(t *testing.T) {
	f := newListenerFixture(nil, nil)
	var ctxErrAtCompletion error
	f.app.onTerminal = func() {
		ctxErrAtCompletion = f.ctx.Err()
	}

	f.bridge.Closed(nil)

	assert.Equal(t, 1, f.app.completed)
	assert.Zero(t, f.app.cancelled)
	assert.NoError(t, ctxErrAtCompletion, "completion runs before the context is cancelled")
	assert.Error(t, f.ctx.Err())
}

func TestClosedNonOKCancels(t *testing.T) {
	f := newListenerFixture(nil, nil)
	status := marlinerrors.Newf(marlinerrors.CodeAborted, "peer went away")

	f.bridge.Closed(status)

	assert.Zero(t, f.app.completed)
	assert.Equal(t, 1, f.app.cancelled)
	assert.True(t, f.call.IsCancelled())
	assert.Equal(t, status, context.Cause(f.ctx))
}

func TestClosedReleasesAdmissionSlot(t *testing.T) {
	services := newLimitedServices("Orders.Get", 1, false)
	controller := admission.NewController(services)

	f := newListenerFixture(nil, func(p *StreamListenerParams) {
		p.Admission = controller
		p.Services = services
	})
	require.NoError(t, f.bridge.HalfClosed())
	require.Equal(t, int64(1), controller.InFlight("Orders.Get"))

	f.bridge.Closed(nil)
	assert.Zero(t, controller.InFlight("Orders.Get"))
}

func TestClosedCleanupRunsWhenCallbackPanics(t *testing.T) {
	services := newLimitedServices("Orders.Get", 1, false)
	controller := admission.NewController(services)

	f := newListenerFixture(nil, func(p *StreamListenerParams) {
		p.Admission = controller
		p.Services = services
	})
	require.NoError(t, f.bridge.HalfClosed())
	require.Equal(t, int64(1), controller.InFlight("Orders.Get"))

	f.app.onTerminal = func() { panic("completion callback exploded") }
	assert.PanicsWithValue(t, "completion callback exploded", func() {
		f.bridge.Closed(nil)
	})

	assert.Zero(t, controller.InFlight("Orders.Get"), "the slot is released despite the panic")
	assert.Error(t, f.ctx.Err(), "the context is cancelled despite the panic")
}

func TestCancellationFlagVisibleSynchronously(t *testing.T) {
	f := newListenerFixture(nil, nil)
	require.False(t, f.call.IsCancelled())
	f.ctx.Cancel(errors.New("deadline enforcement"))
	assert.True(t, f.call.IsCancelled(), "the flag is raised in the cancelling goroutine")
}

func TestReadyForwardsUnlessCancelled(t *testing.T) {
	f := newListenerFixture(nil, nil)
	f.bridge.Ready()
	assert.Equal(t, 1, f.app.readies)

	f.ctx.Cancel(nil)
	f.bridge.Ready()
	assert.Equal(t, 1, f.app.readies)
}

// Two concurrent invocations of a limit-1 interface: the first is admitted
// and completes normally, the second is turned away, and once the first
// finishes the slot frees up for a third.
func TestConcurrentCallsAgainstLimitedInterface(t *testing.T) {
	services := newLimitedServices("Orders.Get", 1, false)
	controller := admission.NewController(services)
	withAdmission := func(p *StreamListenerParams) {
		p.Admission = controller
		p.Services = services
	}

	first := newListenerFixture(nil, withAdmission)
	second := newListenerFixture(nil, withAdmission)

	require.NoError(t, first.bridge.HalfClosed())
	require.NoError(t, second.bridge.HalfClosed())

	assert.Equal(t, 1, first.app.halfClosed)
	assert.Zero(t, second.app.halfClosed)
	assert.True(t, second.stream.closed)
	assert.Contains(t, second.stream.closeStatus.Message(), "retry later")

	require.NoError(t, first.call.SendHeaders(transport.NewHeaders()))
	require.NoError(t, first.call.SendMessage("order #42"))
	require.NoError(t, first.call.Close(nil, transport.NewHeaders()))
	first.bridge.Closed(nil)

	third := newListenerFixture(nil, withAdmission)
	require.NoError(t, third.bridge.HalfClosed())
	assert.Equal(t, 1, third.app.halfClosed)

	assert.Equal(t, []bool{true}, first.tracer.ended)
	assert.Equal(t, 1, first.app.completed)
}
