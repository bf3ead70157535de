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

package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/tabfilter/core"
)

// ParquetReaderOptions configures the columnar reader.
type ParquetReaderOptions struct {
	BatchSize int64
}

// ReaderOptionParquet allows functional customization of ParquetReader.
type ReaderOptionParquet func(*ParquetReaderOptions)

// WithParquetBatchSize sets how many rows are decoded per Arrow record batch.
func WithParquetBatchSize(size int64) ReaderOptionParquet {
	return func(o *ParquetReaderOptions) {
		if size > 0 {
			o.BatchSize = size
		}
	}
}

// ParquetReader reads a Parquet file as a table. Schema fields become the title
// unless the header is disabled, in which case titles are synthesized.
type ParquetReader struct {
	*tableReader
	handle   *os.File
	records  pqarrow.RecordReader
	batch    arrow.Record
	batchIdx int
	dataCol  int
}

// NewParquetReader opens a Parquet file positioned at its first data row.
// The schema stands in for the title row, so with a header present the data row
// is counted from the row after the title: the default positions read every record.
// Only the title's column offset applies to the schema.
func NewParquetReader(path string, titlePos, dataPos core.Position, options ...ReaderOptionParquet) (*ParquetReader, error) {
	opts := ParquetReaderOptions{BatchSize: 1024}
	for _, opt := range options {
		opt(&opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ReaderError{Format: "parquet", Op: "open", Err: err}
	}
	pr, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, &ReaderError{Format: "parquet", Op: "create_reader", Err: err}
	}
	fr, err := pqarrow.NewFileReader(pr, pqarrow.ArrowReadProperties{BatchSize: opts.BatchSize}, memory.NewGoAllocator())
	if err != nil {
		f.Close()
		return nil, &ReaderError{Format: "parquet", Op: "create_arrow_reader", Err: err}
	}
	schema, err := fr.Schema()
	if err != nil {
		f.Close()
		return nil, &ReaderError{Format: "parquet", Op: "schema", Err: err}
	}
	rr, err := fr.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		f.Close()
		return nil, &ReaderError{Format: "parquet", Op: "create_record_reader", Err: err}
	}

	p := &ParquetReader{handle: f, records: rr, dataCol: dataPos.Column}

	var title core.Title
	if titlePos.HasHeader() {
		for i, field := range schema.Fields() {
			if i >= titlePos.Column {
				title = append(title, field.Name)
			}
		}
	} else {
		title = core.SynthesizeTitle(len(schema.Fields()))
	}

	skip := dataPos.Row
	if titlePos.HasHeader() {
		skip = max(dataPos.Row-titlePos.Row-1, 0)
	}
	for skipped := 0; skipped < skip; skipped++ {
		if _, err := p.readRaw(context.Background()); err != nil {
			break
		}
	}

	p.tableReader = newTableReader(title, pr.NumRows()-int64(skip), p.readRaw)
	return p, nil
}

// Close implements core.TableReader.
func (p *ParquetReader) Close() error {
	p.batch = nil
	if p.records != nil {
		p.records.Release()
		p.records = nil
	}
	if p.handle == nil {
		return nil
	}
	err := p.handle.Close()
	p.handle = nil
	if err != nil {
		return &ReaderError{Format: "parquet", Op: "close", Err: err}
	}
	return nil
}

func (p *ParquetReader) readRaw(ctx context.Context) (core.Row, error) {
	if p.records == nil {
		return nil, io.EOF
	}
	for p.batch == nil || p.batchIdx >= int(p.batch.NumRows()) {
		// The record reader owns each batch and releases it on the next Read.
		rec, err := p.records.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, &ReaderError{Format: "parquet", Op: "load_batch", Err: err}
		}
		if rec == nil {
			return nil, io.EOF
		}
		p.batch = rec
		p.batchIdx = 0
	}

	n := int(p.batch.NumCols())
	row := make(core.Row, 0, n)
	for i := p.dataCol; i < n; i++ {
		row = append(row, columnValue(p.batch.Column(i), p.batchIdx))
	}
	p.batchIdx++
	return row, nil
}

// columnValue converts one Arrow cell to a Go scalar.
func columnValue(col arrow.Array, idx int) interface{} {
	if col.IsNull(idx) {
		return nil
	}
	switch arr := col.(type) {
	case *array.Boolean:
		return arr.Value(idx)
	case *array.Int8:
		return int64(arr.Value(idx))
	case *array.Int16:
		return int64(arr.Value(idx))
	case *array.Int32:
		return int64(arr.Value(idx))
	case *array.Int64:
		return arr.Value(idx)
	case *array.Uint8:
		return uint64(arr.Value(idx))
	case *array.Uint16:
		return uint64(arr.Value(idx))
	case *array.Uint32:
		return uint64(arr.Value(idx))
	case *array.Uint64:
		return arr.Value(idx)
	case *array.Float32:
		return float64(arr.Value(idx))
	case *array.Float64:
		return arr.Value(idx)
	case *array.String:
		return arr.Value(idx)
	case *array.Binary:
		return string(arr.Value(idx))
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return arr.Value(idx).ToTime(unit)
	case *array.Date32:
		return arr.Value(idx).ToTime()
	case *array.Date64:
		return arr.Value(idx).ToTime()
	default:
		return fmt.Sprintf("%v", col.GetOneForMarshal(idx))
	}
}
