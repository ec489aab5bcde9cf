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
	"io"

	"github.com/marlinrpc/marlin/marlinerrors"
)

// ServerStream is the transport's view of one accepted inbound call. It
// owns framing, multiplexing, and flow control; the call layer only drives
// it. The stream's lifetime is managed by the transport, not by the call.
//
// None of these operations block on I/O; writes are buffered and pushed by
// the transport's own machinery.
type ServerStream interface {
	// Request grants the transport credit to deliver up to n more inbound
	// messages to the stream's listener.
	Request(n int)

	// WriteHeaders sends the outbound header metadata. Called at most once,
	// before any message.
	WriteHeaders(headers Headers) error

	// WriteMessage queues one outbound message body. The stream applies the
	// compressor set via SetCompressor.
	WriteMessage(message io.Reader) error

	// Flush pushes any buffered headers and messages to the peer.
	Flush() error

	// Close terminates the stream normally with the given status and
	// trailing metadata. A nil status is OK.
	Close(status *marlinerrors.Status, trailers Headers) error

	// Cancel aborts the stream abnormally. Later writes against the stream
	// are silently discarded.
	Cancel(status *marlinerrors.Status)

	// IsReady reports whether the stream can accept more outbound data
	// without buffering past its flow-control window.
	IsReady() bool

	// SetCompressor fixes the compression strategy for outbound messages.
	// Called at most once, before WriteHeaders.
	SetCompressor(compressor Compressor)

	// SetMessageCompression toggles compression for subsequent messages.
	SetMessageCompression(enabled bool)

	// Attributes returns the stream's connection-level properties.
	Attributes() Attributes

	// Authority returns the authority the client intended to reach.
	Authority() string
}

// MessageProducer drains inbound messages the transport has buffered for a
// stream. It is handed to the stream's listener each time new messages
// become available.
type MessageProducer interface {
	// Next returns the next available message body, or nil once no more
	// messages are currently buffered. The caller owns the returned reader
	// and must close it.
	Next() io.ReadCloser

	// Close releases any messages that were not consumed.
	Close() error
}

// StreamListener receives transport-level events for one inbound stream.
// The transport invokes all callbacks on an application goroutine of its
// choosing and reacts to returned errors by terminating the stream.
type StreamListener interface {
	// MessagesAvailable is invoked whenever the transport has buffered new
	// inbound messages. The listener assumes ownership of the producer.
	MessagesAvailable(producer MessageProducer) error

	// HalfClosed is invoked when the client finishes sending request data.
	HalfClosed() error

	// Closed is invoked exactly once, when the stream is fully terminated.
	// A nil status is OK.
	Closed(status *marlinerrors.Status)

	// Ready is invoked when the stream can accept more outbound data.
	Ready()
}
