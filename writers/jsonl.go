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
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aaronlmathis/tabfilter/core"
)

// JSONLWriter writes line-delimited JSON. The first line is the header as an
// array of names; every row follows as an object keyed by those names in header order.
type JSONLWriter struct {
	mu         sync.Mutex
	buf        *bufio.Writer
	closer     io.Closer
	projection Projection
	rows       atomic.Int64
	finalized  bool
	errorState error
}

// NewJSONLWriter writes the header line to w and returns the writer.
func NewJSONLWriter(w io.WriteCloser, title core.Title, desired []string) (*JSONLWriter, error) {
	j := &JSONLWriter{
		buf:        bufio.NewWriter(w),
		closer:     w,
		projection: NewProjection(title, desired),
	}

	header, err := json.Marshal([]string(j.projection.Header()))
	if err != nil {
		return nil, &WriterError{Format: "jsonl", Op: "write_header", Err: err}
	}
	if err := j.writeLine(header); err != nil {
		return nil, &WriterError{Format: "jsonl", Op: "write_header", Err: err}
	}
	return j, nil
}

// Header implements core.TableWriter.
func (j *JSONLWriter) Header() core.Title {
	return j.projection.Header()
}

// Write implements core.TableWriter.
func (j *JSONLWriter) Write(ctx context.Context, row core.Row) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.finalized {
		return &WriterError{Format: "jsonl", Op: "write", Err: core.ErrFinalized}
	}
	if j.errorState != nil {
		return j.errorState
	}

	line, err := j.encode(j.projection.Apply(row))
	if err != nil {
		return &WriterError{Format: "jsonl", Op: "encode", Err: err}
	}
	if err := j.writeLine(line); err != nil {
		j.errorState = &WriterError{Format: "jsonl", Op: "write", Err: err}
		return j.errorState
	}
	j.rows.Add(1)
	return nil
}

// encode renders row as an object whose keys follow header order.
func (j *JSONLWriter) encode(row core.Row) ([]byte, error) {
	header := j.projection.Header()
	out := []byte{'{'}
	for i, name := range header {
		if i > 0 {
			out = append(out, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		var cell interface{}
		if i < len(row) {
			cell = row[i]
		}
		value, err := json.Marshal(cell)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		out = append(out, key...)
		out = append(out, ':')
		out = append(out, value...)
	}
	return append(out, '}'), nil
}

func (j *JSONLWriter) writeLine(line []byte) error {
	if _, err := j.buf.Write(line); err != nil {
		return err
	}
	return j.buf.WriteByte('\n')
}

// RowsWritten implements core.TableWriter.
func (j *JSONLWriter) RowsWritten() int64 {
	return j.rows.Load()
}

// Finalize flushes and closes the destination.
func (j *JSONLWriter) Finalize() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.finalized {
		return core.ErrFinalized
	}
	j.finalized = true

	flushErr := j.buf.Flush()
	closeErr := j.closer.Close()
	if flushErr != nil {
		return &WriterError{Format: "jsonl", Op: "flush", Err: flushErr}
	}
	if closeErr != nil {
		return &WriterError{Format: "jsonl", Op: "close", Err: closeErr}
	}
	return nil
}
