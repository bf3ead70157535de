//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of TabFilter.
//
// TabFilter is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// TabFilter is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with TabFilter. If not, see https://www.gnu.org/licenses/.

package writers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aaronlmathis/tabfilter/core"
)

// CSVWriterOptions configures delimited-text output.
type CSVWriterOptions struct {
	Separator  string
	BufferSize int
}

// WriterOptionCSV is a functional option.
type WriterOptionCSV func(*CSVWriterOptions)

// WithSeparator sets the field separator. The default is a comma.
func WithSeparator(sep string) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		if sep != "" {
			opts.Separator = sep
		}
	}
}

// WithBufferSize sets the size of the output buffer in bytes.
func WithBufferSize(size int) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		if size > 0 {
			opts.BufferSize = size
		}
	}
}

// CSVWriter writes one line per row. Cells are joined with the separator and
// never quoted; a nil cell becomes empty text.
type CSVWriter struct {
	buf        *bufio.Writer
	closer     io.Closer
	options    CSVWriterOptions
	projection Projection
	rows       atomic.Int64
	finalized  bool
	errorState bool
	mu         sync.Mutex
}

// NewCSVWriter writes the header line to w immediately and returns the writer.
func NewCSVWriter(w io.WriteCloser, title core.Title, desired []string, opts ...WriterOptionCSV) (*CSVWriter, error) {
	options := CSVWriterOptions{
		Separator:  ",",
		BufferSize: 64 * 1024,
	}
	for _, opt := range opts {
		opt(&options)
	}

	c := &CSVWriter{
		buf:        bufio.NewWriterSize(w, options.BufferSize),
		closer:     w,
		options:    options,
		projection: NewProjection(title, desired),
	}

	header := make([]string, len(c.projection.Header()))
	copy(header, c.projection.Header())
	if err := c.writeLine(header); err != nil {
		return nil, &WriterError{Format: "csv", Op: "write_header", Err: err}
	}
	return c, nil
}

// Header implements core.TableWriter.
func (c *CSVWriter) Header() core.Title {
	return c.projection.Header()
}

// Write implements core.TableWriter.
func (c *CSVWriter) Write(ctx context.Context, row core.Row) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return &WriterError{Format: "csv", Op: "write", Err: core.ErrFinalized}
	}
	if c.errorState {
		return &WriterError{Format: "csv", Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	cells := c.projection.Apply(row)
	fields := make([]string, len(cells))
	for i, v := range cells {
		fields[i] = core.CellString(v)
	}
	if err := c.writeLine(fields); err != nil {
		c.errorState = true
		return &WriterError{Format: "csv", Op: "write_row", Err: err}
	}
	c.rows.Add(1)
	return nil
}

// RowsWritten implements core.TableWriter.
func (c *CSVWriter) RowsWritten() int64 {
	return c.rows.Load()
}

// Finalize flushes buffered lines and closes the destination.
func (c *CSVWriter) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return core.ErrFinalized
	}
	c.finalized = true

	if err := c.buf.Flush(); err != nil {
		c.closer.Close()
		return &WriterError{Format: "csv", Op: "flush", Err: err}
	}
	if err := c.closer.Close(); err != nil {
		return &WriterError{Format: "csv", Op: "close", Err: err}
	}
	return nil
}

func (c *CSVWriter) writeLine(fields []string) error {
	if _, err := c.buf.WriteString(strings.Join(fields, c.options.Separator)); err != nil {
		return err
	}
	return c.buf.WriteByte('\n')
}
