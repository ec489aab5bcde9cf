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

// Package servercall drives the server side of one RPC invocation: header
// and message sequencing, compression negotiation, single-response
// enforcement, and the bridge that layers admission control and deprecation
// notices onto the raw stream lifecycle.
package servercall

import (
	"strings"

	"github.com/marlinrpc/marlin/api/transport"
	"github.com/marlinrpc/marlin/compressor"
	"github.com/marlinrpc/marlin/internal/bufferpool"
	"github.com/marlinrpc/marlin/marlinerrors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	_tooManyResponses = "too many responses"
	_missingResponse  = "completed without a response"
)

// Call drives the server side of one in-progress RPC invocation. The
// application moves it through its lifecycle in order: SendHeaders, then
// SendMessage as the method shape allows, then Close. Operations invoked out
// of order, or after close, fail with CodeFailedPrecondition.
//
// A Call is driven by one logical flow of control; only the cancellation
// flag may be written from another goroutine.
type Call struct {
	stream transport.ServerStream
	method transport.MethodDescriptor
	ctx    *transport.CancellableContext

	// The peer's advertised accept-encoding set, captured once from the
	// inbound headers; compression is negotiated against it at header-send
	// time and never revalidated.
	acceptEncoding []string

	compressors *compressor.Registry
	tracer      transport.CallTracer
	logger      *zap.Logger

	cancelled   atomic.Bool // set asynchronously via the execution context
	headersSent bool
	closed      bool
	messageSent bool
	compressor  transport.Compressor
}

// CallParams configures a new Call.
type CallParams struct {
	// Stream is the accepted transport stream the call writes through. Its
	// lifetime belongs to the transport.
	Stream transport.ServerStream

	// Method describes the invoked method.
	Method transport.MethodDescriptor

	// InboundHeaders are the headers the client sent; the call reads the
	// peer's accept-encoding advertisement from them.
	InboundHeaders transport.Headers

	// Context is the call's execution scope.
	Context *transport.CancellableContext

	// Compressors is the set of negotiable compression strategies. Defaults
	// to an empty registry.
	Compressors *compressor.Registry

	// Tracer accounts for the call's lifetime. Defaults to a no-op.
	Tracer transport.CallTracer

	// Logger defaults to a no-op.
	Logger *zap.Logger
}

// NewCall accepts an inbound call. The tracer is told the call started
// before NewCall returns.
func NewCall(params CallParams) *Call {
	if params.Compressors == nil {
		params.Compressors = compressor.NewRegistry()
	}
	if params.Tracer == nil {
		params.Tracer = transport.NopCallTracer
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}

	c := &Call{
		stream:      params.Stream,
		method:      params.Method,
		ctx:         params.Context,
		compressors: params.Compressors,
		tracer:      params.Tracer,
		logger:      params.Logger,
	}
	if raw, ok := params.InboundHeaders.Get(transport.MessageAcceptEncodingHeader); ok {
		c.acceptEncoding = splitEncodings(raw)
	}

	c.tracer.ReportCallStarted()
	return c
}

// Request grants the transport credit to deliver up to n more inbound
// messages.
func (c *Call) Request(n int) {
	c.stream.Request(n)
}

// SendHeaders negotiates the outbound compressor and sends the response
// headers. Any client-asserted encoding override in headers is discarded. If
// no compressor was set, or the peer cannot decode the one that was, the
// call falls back to identity. The chosen encoding is always advertised,
// identity included, along with the full set of registered decoder
// encodings.
//
// SendHeaders may be called at most once, before Close.
func (c *Call) SendHeaders(headers transport.Headers) error {
	if c.headersSent {
		return marlinerrors.FailedPreconditionErrorf("SendHeaders has already been called")
	}
	if c.closed {
		return marlinerrors.FailedPreconditionErrorf("call is closed")
	}

	headers.Del(transport.MessageEncodingHeader)
	if c.compressor == nil || !encodingAccepted(c.acceptEncoding, c.compressor.Name()) {
		// Resort to using no compression.
		c.compressor = compressor.Identity
	}

	// Always put the compressor, even if it's identity.
	headers = headers.With(transport.MessageEncodingHeader, c.compressor.Name())
	c.stream.SetCompressor(c.compressor)

	headers.Del(transport.MessageAcceptEncodingHeader)
	if advertised := c.compressors.AdvertisedNames(); len(advertised) != 0 {
		headers = headers.With(transport.MessageAcceptEncodingHeader, strings.Join(advertised, ","))
	}

	// Don't check whether SendMessage has been called, since it requires
	// that SendHeaders already was.
	c.headersSent = true
	if err := c.stream.WriteHeaders(headers); err != nil {
		return err
	}
	return c.stream.Flush()
}

// SendMessage serializes and transmits one response message.
//
// A second message on a method whose protocol allows exactly one response
// does not reach the transport: the call is closed internally with a
// "too many responses" status and SendMessage returns nil. A recoverable
// serialization or transmission failure likewise resolves into a close
// carrying the derived status. A fatal failure closes the call with a
// cancellation status and is then returned, so transport-level cleanup has
// already run by the time the caller sees it.
func (c *Call) SendMessage(message interface{}) error {
	if !c.headersSent {
		return marlinerrors.FailedPreconditionErrorf("SendHeaders has not been called")
	}
	if c.closed {
		return marlinerrors.FailedPreconditionErrorf("call is closed")
	}

	if c.method.Type.ServerSendsOneMessage() && c.messageSent {
		c.internalClose(marlinerrors.Newf(marlinerrors.CodeInternal, _tooManyResponses))
		return nil
	}

	c.messageSent = true
	err := c.writeMessage(message)
	if err == nil {
		return nil
	}
	if marlinerrors.IsFatal(err) {
		closeErr := c.Close(
			marlinerrors.Newf(marlinerrors.CodeCancelled, "SendMessage failed with a fatal error"),
			transport.Headers{},
		)
		// The process may be compromised; surface the failure after the
		// stream has been torn down.
		return multierr.Append(err, closeErr)
	}
	return c.Close(marlinerrors.FromError(err), transport.Headers{})
}

func (c *Call) writeMessage(message interface{}) error {
	body, err := c.method.Codec.MarshalResponse(message)
	if err != nil {
		return err
	}

	buf := bufferpool.Get()
	defer bufferpool.Put(buf)
	if _, err := buf.Write(body); err != nil {
		return err
	}
	if err := c.stream.WriteMessage(buf); err != nil {
		return err
	}
	return c.stream.Flush()
}

// SetCompression fixes the named compression strategy for the call's
// response messages. It must be called before SendHeaders; the final
// encoding still depends on what the peer advertised it can decode.
func (c *Call) SetCompression(name string) error {
	// Checked here to give a better error message.
	if c.headersSent {
		return marlinerrors.FailedPreconditionErrorf("SendHeaders has already been called")
	}

	comp, ok := c.compressors.Lookup(name)
	if !ok {
		return marlinerrors.InvalidArgumentErrorf("unable to find compressor by name %q", name)
	}
	c.compressor = comp
	return nil
}

// SetMessageCompression toggles compression for subsequent messages.
func (c *Call) SetMessageCompression(enabled bool) {
	c.stream.SetMessageCompression(enabled)
}

// IsReady reports whether the stream can accept more outbound data.
func (c *Call) IsReady() bool {
	return c.stream.IsReady()
}

// Close terminates the call with the given status and trailing metadata. A
// nil status is OK.
//
// Closing OK a method whose protocol requires exactly one response, without
// one having been sent, aborts the stream with a "completed without a
// response" internal status instead of the caller's. In every case the
// tracer learns of the call's completion exactly once.
func (c *Call) Close(status *marlinerrors.Status, trailers transport.Headers) error {
	if c.closed {
		return marlinerrors.FailedPreconditionErrorf("call already closed")
	}
	c.closed = true

	ok := status.Code() == marlinerrors.CodeOK
	if ok && c.method.Type.ServerSendsOneMessage() && !c.messageSent {
		c.internalClose(marlinerrors.Newf(marlinerrors.CodeInternal, _missingResponse))
		return nil
	}

	defer c.tracer.ReportCallEnded(ok)
	return c.stream.Close(status, trailers)
}

// IsCancelled reports whether the call's execution context has been
// cancelled. The flag may flip to true at any time, independent of Close,
// and never reverts.
func (c *Call) IsCancelled() bool {
	return c.cancelled.Load()
}

// Method returns the descriptor of the invoked method.
func (c *Call) Method() transport.MethodDescriptor {
	return c.method
}

// Attributes returns the stream's connection-level properties.
func (c *Call) Attributes() transport.Attributes {
	return c.stream.Attributes()
}

// Authority returns the authority the client intended to reach.
func (c *Call) Authority() string {
	return c.stream.Authority()
}

// internalClose aborts the stream after a locally detected protocol
// violation. The call is closed from the application's point of view; every
// later lifecycle operation fails with CodeFailedPrecondition.
func (c *Call) internalClose(status *marlinerrors.Status) {
	c.closed = true
	c.logger.Warn("Cancelling the stream.", zap.Error(status))
	c.stream.Cancel(status)
	c.tracer.ReportCallEnded(false)
}

func splitEncodings(raw string) []string {
	parts := strings.Split(raw, ",")
	encodings := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			encodings = append(encodings, p)
		}
	}
	return encodings
}

func encodingAccepted(accepted []string, encoding string) bool {
	for _, a := range accepted {
		if a == encoding {
			return true
		}
	}
	return false
}
