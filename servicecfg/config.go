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

// Package servicecfg holds per-interface provider configuration: the
// deprecated flag, the concurrent request limit, and free-form attributes.
// Configuration is read-heavy and may be hot-reloaded at runtime, so
// providers publish immutable snapshots.
package servicecfg

// NoLimit is the MaxRequests sentinel meaning admission is unbounded.
const NoLimit = -1

// ServiceConfig is the provider-side configuration of one service interface.
type ServiceConfig struct {
	// Deprecated marks the interface as superseded; invocations are logged
	// (rate-limited) so operators can track remaining callers.
	Deprecated bool `config:"deprecated"`

	// MaxRequests caps the number of concurrently admitted calls for the
	// interface. Zero or negative means no limit.
	MaxRequests int `config:"max-requests"`

	// Attributes carries additional provider-defined settings.
	Attributes map[string]string `config:"attributes"`
}

// Provider reports per-interface service configuration. Implementations may
// hot-reload underneath the reader, so results must not be cached across
// calls.
type Provider interface {
	// ServiceConfig returns the configuration of the named interface.
	ServiceConfig(service string) (ServiceConfig, bool)

	// MaxRequests returns the concurrent request limit of the named
	// interface, or NoLimit if the interface is unconfigured or unbounded.
	MaxRequests(service string) int
}
