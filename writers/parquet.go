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
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/tabfilter/core"
)

// ParquetWriterOptions configures columnar output.
type ParquetWriterOptions struct {
	BatchSize    int
	RowGroupSize int64
	Compression  compress.Compression
}

// WriterOptionParquet is a functional option.
type WriterOptionParquet func(*ParquetWriterOptions)

// WithParquetBatchSize sets how many rows are buffered per Arrow record.
func WithParquetBatchSize(size int) WriterOptionParquet {
	return func(opts *ParquetWriterOptions) {
		if size > 0 {
			opts.BatchSize = size
		}
	}
}

// WithRowGroupSize caps the number of rows per Parquet row group.
func WithRowGroupSize(size int64) WriterOptionParquet {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithCompression sets the Parquet compression codec.
func WithCompression(codec compress.Compression) WriterOptionParquet {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = codec
	}
}

// ParquetWriter writes rows into a Parquet file with one nullable string column
// per header name. Every cell is stored in its text form, as with delimited text.
type ParquetWriter struct {
	writer     *pqarrow.FileWriter
	schema     *arrow.Schema
	builders   []*array.StringBuilder
	buffered   int
	options    ParquetWriterOptions
	projection Projection
	rows       atomic.Int64
	finalized  bool
	errorState bool
	mu         sync.Mutex
}

// NewParquetWriter derives the schema from the output header and opens the file
// writer on w. The header lives in the schema, so no row is written up front.
func NewParquetWriter(w io.WriteCloser, title core.Title, desired []string, opts ...WriterOptionParquet) (*ParquetWriter, error) {
	options := ParquetWriterOptions{
		BatchSize:   1000,
		Compression: compress.Codecs.Snappy,
	}
	for _, opt := range opts {
		opt(&options)
	}

	p := &ParquetWriter{
		options:    options,
		projection: NewProjection(title, desired),
	}

	fields := make([]arrow.Field, len(p.projection.Header()))
	for i, name := range p.projection.Header() {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	p.schema = arrow.NewSchema(fields, nil)

	props := []parquet.WriterProperty{parquet.WithCompression(options.Compression)}
	if options.RowGroupSize > 0 {
		props = append(props, parquet.WithMaxRowGroupLength(options.RowGroupSize))
	}
	writer, err := pqarrow.NewFileWriter(p.schema, w, parquet.NewWriterProperties(props...), pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, &WriterError{Format: "parquet", Op: "create_writer", Err: err}
	}
	p.writer = writer

	mem := memory.NewGoAllocator()
	p.builders = make([]*array.StringBuilder, len(fields))
	for i := range p.builders {
		p.builders[i] = array.NewStringBuilder(mem)
	}
	return p, nil
}

// Header implements core.TableWriter.
func (p *ParquetWriter) Header() core.Title {
	return p.projection.Header()
}

// Write implements core.TableWriter.
func (p *ParquetWriter) Write(ctx context.Context, row core.Row) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finalized {
		return &WriterError{Format: "parquet", Op: "write", Err: core.ErrFinalized}
	}
	if p.errorState {
		return &WriterError{Format: "parquet", Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	cells := p.projection.Apply(row)
	for i, b := range p.builders {
		if i >= len(cells) || cells[i] == nil {
			b.AppendNull()
			continue
		}
		b.Append(core.CellString(cells[i]))
	}
	p.buffered++
	p.rows.Add(1)

	if p.buffered >= p.options.BatchSize {
		if err := p.flushBatch(); err != nil {
			p.errorState = true
			return &WriterError{Format: "parquet", Op: "flush_batch", Err: err}
		}
	}
	return nil
}

// RowsWritten implements core.TableWriter.
func (p *ParquetWriter) RowsWritten() int64 {
	return p.rows.Load()
}

// Finalize writes any buffered rows and the file footer. Closing the file
// writer closes the destination.
func (p *ParquetWriter) Finalize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finalized {
		return core.ErrFinalized
	}
	p.finalized = true

	flushErr := p.flushBatch()
	for _, b := range p.builders {
		b.Release()
	}
	p.builders = nil

	if err := p.writer.Close(); err != nil {
		return &WriterError{Format: "parquet", Op: "close_writer", Err: err}
	}
	if flushErr != nil {
		return &WriterError{Format: "parquet", Op: "flush_remaining", Err: flushErr}
	}
	return nil
}

// flushBatch converts the buffered builders into one record (must hold mutex).
func (p *ParquetWriter) flushBatch() error {
	if p.buffered == 0 {
		return nil
	}
	cols := make([]arrow.Array, len(p.builders))
	for i, b := range p.builders {
		cols[i] = b.NewArray()
	}
	rec := array.NewRecord(p.schema, cols, int64(p.buffered))
	for _, c := range cols {
		c.Release()
	}
	defer rec.Release()

	p.buffered = 0
	return p.writer.Write(rec)
}
