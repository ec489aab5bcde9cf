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

// CallListener receives the application-visible lifecycle events of one
// inbound call. All callbacks run on an application goroutine chosen by the
// transport.
//
// Exactly one of OnComplete or OnCancel is invoked, after which no further
// callbacks are delivered.
type CallListener interface {
	// OnMessage delivers one decoded request message. Returning an error
	// aborts delivery and terminates the stream.
	OnMessage(message interface{}) error

	// OnHalfClose signals that the client has finished sending request data.
	OnHalfClose() error

	// OnComplete signals that the call terminated with an OK status.
	OnComplete()

	// OnCancel signals that the call terminated for any other reason.
	OnCancel()

	// OnReady signals that the stream can accept more outbound data.
	OnReady()
}
