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
	"io"

	"github.com/marlinrpc/marlin/admission"
	"github.com/marlinrpc/marlin/api/transport"
	"github.com/marlinrpc/marlin/marlinerrors"
	"github.com/marlinrpc/marlin/servicecfg"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// StreamListenerParams configures the bridge between one stream's transport
// events and the application's call listener.
type StreamListenerParams struct {
	// Listener receives the application-visible callbacks.
	Listener transport.CallListener

	// Admission enforces the per-interface concurrent request limit at
	// half-close. Optional; nil disables admission control.
	Admission *admission.Controller

	// Deprecation warns about invocations of deprecated interfaces.
	// Optional.
	Deprecation *admission.DeprecationNotifier

	// Services reports per-interface configuration. Optional; nil means no
	// interface is deprecated or limited.
	Services servicecfg.Provider
}

// NewStreamListener returns the transport-facing listener for the call. It
// forwards inbound events to the application listener, interposing
// deprecation notices and admission control on half-close and releasing the
// admission slot exactly once on close.
//
// The listener subscribes to the call's execution context at construction,
// so an externally triggered cancellation is reflected in the call's
// cancellation flag synchronously, in the goroutine that triggers it.
func (c *Call) NewStreamListener(params StreamListenerParams) transport.StreamListener {
	l := &streamListener{
		call:        c,
		listener:    params.Listener,
		ctx:         c.ctx,
		admission:   params.Admission,
		deprecation: params.Deprecation,
		services:    params.Services,
	}
	c.ctx.AddListener(func() {
		c.cancelled.Store(true)
	})
	return l
}

// streamListener adapts transport events into application callbacks. All of
// its callbacks are assumed to be invoked on an application goroutine, and
// the transport is responsible for handling returned errors.
type streamListener struct {
	call        *Call
	listener    transport.CallListener
	ctx         *transport.CancellableContext
	admission   *admission.Controller
	deprecation *admission.DeprecationNotifier
	services    servicecfg.Provider

	// admitted records whether this call took an admission slot, so Closed
	// releases exactly once per successful TryAdmit even if the configured
	// limit changes mid-call.
	admitted atomic.Bool
}

var _ transport.StreamListener = (*streamListener)(nil)

// MessagesAvailable drains the producer, decoding each message and
// delivering it to the application. Each message is released as soon as it
// has been processed, successfully or not. Once the call is cancelled the
// producer is discarded without touching the application.
func (l *streamListener) MessagesAvailable(producer transport.MessageProducer) error {
	if l.call.IsCancelled() {
		// Nobody is listening anymore; discard quietly.
		_ = producer.Close()
		return nil
	}

	for {
		message := producer.Next()
		if message == nil {
			return nil
		}
		if err := l.deliver(message); err != nil {
			return multierr.Append(err, producer.Close())
		}
	}
}

func (l *streamListener) deliver(message io.ReadCloser) error {
	request, err := l.call.method.Codec.UnmarshalRequest(message)
	if err != nil {
		return multierr.Append(err, message.Close())
	}
	if err := l.listener.OnMessage(request); err != nil {
		return multierr.Append(err, message.Close())
	}
	return message.Close()
}

// HalfClosed handles the client finishing its request data. It resolves the
// target interface, emits a deprecation notice if the interface is flagged,
// and enforces the interface's admission limit; a rejected call is closed
// with an internal status before the application ever sees it.
func (l *streamListener) HalfClosed() error {
	if l.call.IsCancelled() {
		return nil
	}

	service := l.call.method.ServiceName()

	if l.services != nil && l.deprecation != nil {
		if cfg, ok := l.services.ServiceConfig(service); ok {
			l.deprecation.MaybeWarn(service, cfg.Deprecated)
		}
	}

	if service != "" && l.admission != nil {
		if limit := l.admission.Limit(service); limit != servicecfg.NoLimit {
			if !l.admission.TryAdmit(service) {
				l.rejectAdmission(service, limit)
				return nil
			}
			l.admitted.Store(true)
		}
	}

	return l.listener.OnHalfClose()
}

// rejectAdmission closes the call before the application sees the request.
func (l *streamListener) rejectAdmission(service string, limit int) {
	status := marlinerrors.Newf(
		marlinerrors.CodeInternal,
		"service [%s] has reached its concurrent request limit [%d], retry later",
		service, limit,
	)
	if err := l.call.Close(status, transport.Headers{}); err != nil {
		l.call.logger.Warn("Failed to close admission-rejected call.", zap.Error(err))
	}
}

// Closed dispatches the call's terminal event: OnComplete for an OK status,
// otherwise the cancellation flag is raised and OnCancel runs. Whatever the
// branch, and whether or not the callback panics, the admission slot taken
// at half-close is released and the execution context is then cancelled.
// Cancellation comes strictly after the completion callback so the
// application can distinguish normal completion from cancellation before
// cleanup side effects occur.
func (l *streamListener) Closed(status *marlinerrors.Status) {
	defer func() {
		if l.admitted.Load() {
			l.admission.Release(l.call.method.ServiceName())
		}
		var cause error
		if status != nil {
			cause = status
		}
		l.ctx.Cancel(cause)
	}()

	if status.Code() == marlinerrors.CodeOK {
		l.listener.OnComplete()
	} else {
		l.call.cancelled.Store(true)
		l.listener.OnCancel()
	}
}

// Ready forwards the transport's back-pressure signal, unless the call has
// already been cancelled.
func (l *streamListener) Ready() {
	if l.call.IsCancelled() {
		return
	}
	l.listener.OnReady()
}
