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

	"github.com/xuri/excelize/v2"

	"github.com/aaronlmathis/tabfilter/core"
)

// XLSXWriter streams rows into the first worksheet of a new workbook. The header
// is always row 1. Cell values are written as they were read.
type XLSXWriter struct {
	dest       io.WriteCloser
	book       *excelize.File
	stream     *excelize.StreamWriter
	projection Projection
	rows       atomic.Int64
	finalized  bool
	errorState bool
	mu         sync.Mutex
}

// NewXLSXWriter creates the workbook and writes the header row. Nothing reaches
// dest until Finalize serializes the workbook.
func NewXLSXWriter(dest io.WriteCloser, title core.Title, desired []string) (*XLSXWriter, error) {
	book := excelize.NewFile()
	stream, err := book.NewStreamWriter(book.GetSheetName(0))
	if err != nil {
		book.Close()
		return nil, &WriterError{Format: "xlsx", Op: "create_stream", Err: err}
	}

	x := &XLSXWriter{
		dest:       dest,
		book:       book,
		stream:     stream,
		projection: NewProjection(title, desired),
	}

	header := make([]interface{}, len(x.projection.Header()))
	for i, name := range x.projection.Header() {
		header[i] = name
	}
	if err := x.setRow(1, header); err != nil {
		book.Close()
		return nil, &WriterError{Format: "xlsx", Op: "write_header", Err: err}
	}
	return x, nil
}

// Header implements core.TableWriter.
func (x *XLSXWriter) Header() core.Title {
	return x.projection.Header()
}

// Write implements core.TableWriter.
func (x *XLSXWriter) Write(ctx context.Context, row core.Row) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.finalized {
		return &WriterError{Format: "xlsx", Op: "write", Err: core.ErrFinalized}
	}
	if x.errorState {
		return &WriterError{Format: "xlsx", Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	cells := x.projection.Apply(row)
	values := make([]interface{}, len(cells))
	copy(values, cells)

	// Row 1 holds the header.
	if err := x.setRow(int(x.rows.Load())+2, values); err != nil {
		x.errorState = true
		return &WriterError{Format: "xlsx", Op: "write_row", Err: err}
	}
	x.rows.Add(1)
	return nil
}

// RowsWritten implements core.TableWriter.
func (x *XLSXWriter) RowsWritten() int64 {
	return x.rows.Load()
}

// Finalize serializes the workbook to the destination and closes it.
func (x *XLSXWriter) Finalize() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.finalized {
		return core.ErrFinalized
	}
	x.finalized = true
	defer x.book.Close()

	if err := x.stream.Flush(); err != nil {
		x.dest.Close()
		return &WriterError{Format: "xlsx", Op: "flush", Err: err}
	}
	if err := x.book.Write(x.dest); err != nil {
		x.dest.Close()
		return &WriterError{Format: "xlsx", Op: "serialize", Err: err}
	}
	if err := x.dest.Close(); err != nil {
		return &WriterError{Format: "xlsx", Op: "close", Err: err}
	}
	return nil
}

func (x *XLSXWriter) setRow(row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return x.stream.SetRow(cell, values)
}
