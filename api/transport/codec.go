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

import "io"

// Codec translates one method's application payloads to and from their wire
// representation. Implementations are supplied by the encoding layer.
//
// A Codec may tag an unrecoverable failure with marlinerrors.Fatal; the call
// layer then propagates the failure after closing the stream instead of
// absorbing it into the call's status.
type Codec interface {
	// MarshalResponse encodes one response message.
	MarshalResponse(message interface{}) ([]byte, error)

	// UnmarshalRequest decodes one request message from its wire form.
	UnmarshalRequest(r io.Reader) (interface{}, error)
}
