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

package marlingzip

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	assert.Equal(t, "gzip", New().Name())
}

func TestRoundTrip(t *testing.T) {
	compressor := New(Level(gzip.BestSpeed))

	var buf bytes.Buffer
	w, err := compressor.Compress(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello compression"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := compressor.Decompress(&buf)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello compression", string(body))
}

func TestPooledWritersAndReadersAreReusable(t *testing.T) {
	compressor := New()

	for i := 0; i < 3; i++ {
		var buf bytes.Buffer
		w, err := compressor.Compress(&buf)
		require.NoError(t, err)
		_, err = w.Write([]byte("round trip"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r, err := compressor.Decompress(&buf)
		require.NoError(t, err)
		body, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, "round trip", string(body))
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	compressor := New()
	_, err := compressor.Decompress(bytes.NewReader([]byte("not gzip")))
	assert.Error(t, err)
}
