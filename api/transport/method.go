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

import "strings"

// Type is the RPC shape of a method.
type Type int

const (
	// Unary methods take one request message and return one response message.
	Unary Type = iota + 1

	// ClientStreaming methods take a stream of request messages and return
	// one response message.
	ClientStreaming

	// ServerStreaming methods take one request message and return a stream
	// of response messages.
	ServerStreaming

	// BidirectionalStreaming methods stream messages in both directions.
	BidirectionalStreaming
)

// ServerSendsOneMessage reports whether the wire protocol expects exactly one
// response message from the server for this method type.
func (t Type) ServerSendsOneMessage() bool {
	return t == Unary || t == ClientStreaming
}

// String returns the name of the method type.
func (t Type) String() string {
	switch t {
	case Unary:
		return "Unary"
	case ClientStreaming:
		return "ClientStreaming"
	case ServerStreaming:
		return "ServerStreaming"
	case BidirectionalStreaming:
		return "BidirectionalStreaming"
	default:
		return "Unknown"
	}
}

// MethodDescriptor identifies one remotely invocable method and carries the
// codec that translates its payloads.
type MethodDescriptor struct {
	// FullName is the fully qualified method name in the form
	// "package.Service/method".
	FullName string

	// Type is the RPC shape of the method.
	Type Type

	// Codec marshals the method's response payloads and unmarshals its
	// request payloads.
	Codec Codec
}

// ServiceName returns the service interface portion of the fully qualified
// method name: everything before the final '/'. It returns an empty string
// if FullName carries no service portion.
func (m MethodDescriptor) ServiceName() string {
	if i := strings.LastIndex(m.FullName, "/"); i > 0 {
		return m.FullName[:i]
	}
	return ""
}
