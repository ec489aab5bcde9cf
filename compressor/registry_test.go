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

package compressor

import (
	"bytes"
	"io"
	"testing"

	"github.com/marlinrpc/marlin/api/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedCompressor struct {
	transport.Compressor
	name string
}

func (c namedCompressor) Name() string { return c.name }

func TestRegistryLookup(t *testing.T) {
	gzip := namedCompressor{name: "gzip"}
	registry := NewRegistry(gzip)

	got, ok := registry.Lookup("gzip")
	require.True(t, ok)
	assert.Equal(t, gzip, got)

	_, ok = registry.Lookup("zstd")
	assert.False(t, ok)
}

func TestRegistryAdvertisedNamesKeepRegistrationOrder(t *testing.T) {
	registry := NewRegistry(
		namedCompressor{name: "gzip"},
		namedCompressor{name: "snappy"},
	)
	assert.Equal(t, []string{"gzip", "snappy"}, registry.AdvertisedNames())

	// Re-registering replaces the strategy without duplicating the name.
	registry.Register(namedCompressor{name: "gzip"})
	assert.Equal(t, []string{"gzip", "snappy"}, registry.AdvertisedNames())
}

func TestEmptyRegistryAdvertisesNothing(t *testing.T) {
	assert.Empty(t, NewRegistry().AdvertisedNames())
}

func TestIdentityRoundTrip(t *testing.T) {
	assert.Equal(t, IdentityName, Identity.Name())

	var buf bytes.Buffer
	w, err := Identity.Compress(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte("as is"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "as is", buf.String())

	r, err := Identity.Decompress(&buf)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "as is", string(body))
}
