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

// Package marlingzip provides the GZIP compression strategy for marlin
// streams. Writers and readers are pooled across messages.
package marlingzip

import (
	"compress/gzip"
	"io"
	"sync"

	"github.com/marlinrpc/marlin/api/transport"
)

const name = "gzip"

// Option is an option argument for the compressor constructor, New.
type Option interface {
	apply(*Compressor)
}

// Level sets the compression level for the compressor.
func Level(level int) Option {
	return levelOption{level: level}
}

type levelOption struct {
	level int
}

func (o levelOption) apply(opts *Compressor) {
	opts.level = o.level
}

// New returns a GZIP compression strategy. Register it on the server's
// compressor registry to make it negotiable:
//
//	registry := compressor.NewRegistry(marlingzip.New())
func New(opts ...Option) *Compressor {
	c := &Compressor{
		level: gzip.DefaultCompression,
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	return c
}

// Compressor represents the gzip compression strategy.
type Compressor struct {
	level         int
	compressors   sync.Pool
	decompressors sync.Pool
}

var _ transport.Compressor = (*Compressor)(nil)

// Name is gzip.
func (*Compressor) Name() string {
	return name
}

// Compress creates a gzip compressor.
func (c *Compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	if cw, got := c.compressors.Get().(*writer); got {
		cw.writer.Reset(w)
		return cw, nil
	}

	cw, err := gzip.NewWriterLevel(w, c.level)
	if err != nil {
		return nil, err
	}

	return &writer{
		writer: cw,
		pool:   &c.compressors,
	}, nil
}

type writer struct {
	writer *gzip.Writer
	pool   *sync.Pool
}

var _ io.WriteCloser = (*writer)(nil)

func (w *writer) Write(buf []byte) (int, error) {
	return w.writer.Write(buf)
}

func (w *writer) Close() error {
	defer w.pool.Put(w)
	return w.writer.Close()
}

// Decompress obtains a gzip decompressor.
func (c *Compressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	if dr, got := c.decompressors.Get().(*reader); got {
		if err := dr.reader.Reset(r); err != nil {
			c.decompressors.Put(dr)
			return nil, err
		}

		return dr, nil
	}

	dr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}

	return &reader{
		reader: dr,
		pool:   &c.decompressors,
	}, nil
}

type reader struct {
	reader *gzip.Reader
	pool   *sync.Pool
}

var _ io.ReadCloser = (*reader)(nil)

func (r *reader) Read(buf []byte) (n int, err error) {
	return r.reader.Read(buf)
}

func (r *reader) Close() error {
	r.pool.Put(r)
	return nil
}
