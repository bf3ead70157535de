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
	"fmt"
	"io"
	"sync/atomic"

	"github.com/aaronlmathis/tabfilter/core"
	"github.com/aaronlmathis/tabfilter/filter"
)

// Package readers provides the TabFilter tabular reader variants.
//
// Every variant embeds tableReader, which owns the title, the title -> index map,
// the rule chain and the progress counters. A variant only supplies a raw row
// iterator and a total row estimate.

// ReaderError wraps structured error information for the tabular readers.
type ReaderError struct {
	Format string
	Op     string
	Err    error
}

func (e *ReaderError) Error() string {
	return fmt.Sprintf("%s reader %s: %v", e.Format, e.Op, e.Err)
}

func (e *ReaderError) Unwrap() error {
	return e.Err
}

// ReaderStats holds counters about a reader's work.
type ReaderStats struct {
	RowsRead     int64
	RowsAccepted int64
	RowsRejected int64
}

// rawRowFunc returns the next raw row (already trimmed to the data column offset)
// or io.EOF.
type rawRowFunc func(ctx context.Context) (core.Row, error)

// tableReader implements the format independent half of core.TableReader.
type tableReader struct {
	title core.Title
	index map[string]int
	chain filter.Chain
	total int64
	next  rawRowFunc
	fault error

	// checked is set once every rule column has been found in the title.
	checked bool

	read     atomic.Int64
	accepted atomic.Int64
}

func newTableReader(title core.Title, total int64, next rawRowFunc) *tableReader {
	if total < 0 {
		total = 0
	}
	return &tableReader{
		title: title,
		index: title.Index(),
		total: total,
		next:  next,
	}
}

// Title implements core.TableReader.
func (r *tableReader) Title() core.Title {
	return r.title
}

// AddFilter implements core.TableReader.
func (r *tableReader) AddFilter(p core.Predicate) error {
	if p == nil {
		return fmt.Errorf("nil predicate")
	}
	r.chain = append(r.chain, p)
	r.checked = false
	return nil
}

// AddRule compiles and registers a rule in one step.
func (r *tableReader) AddRule(kind filter.Kind, pattern, column string) error {
	rule, err := filter.NewRule(kind, pattern, column)
	if err != nil {
		return err
	}
	return r.AddFilter(rule)
}

// ReadRow implements core.TableReader.
func (r *tableReader) ReadRow(ctx context.Context) (core.Row, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if r.next == nil {
		return nil, io.EOF
	}
	row, err := r.next(ctx)
	if err != nil {
		return nil, err
	}
	r.read.Add(1)
	return row.Fit(len(r.title)), nil
}

// ReadFilteredRow implements core.TableReader. A rule naming a column missing from
// the title faults the reader before any row is pulled: the error is returned
// now and on every later call, even when the source is empty. A degraded reader
// with no row iterator just ends.
func (r *tableReader) ReadFilteredRow(ctx context.Context) (core.Row, error) {
	if r.fault != nil {
		return nil, r.fault
	}
	if !r.checked && r.next != nil {
		if err := r.chain.Check(r.title, r.index); err != nil {
			r.fault = err
			return nil, err
		}
		r.checked = true
	}
	for {
		row, err := r.ReadRow(ctx)
		if err != nil {
			return nil, err
		}
		ok, err := r.chain.Accept(row, r.title, r.index)
		if err != nil {
			if core.IsConfigError(err) {
				r.fault = err
			}
			return nil, err
		}
		if ok {
			r.accepted.Add(1)
			return row, nil
		}
	}
}

// Progress implements core.TableReader. An empty source reports 1.
func (r *tableReader) Progress() float64 {
	if r.total <= 0 {
		return 1
	}
	p := float64(r.read.Load()) / float64(r.total)
	if p > 1 {
		return 1
	}
	return p
}

// Total implements core.TableReader.
func (r *tableReader) Total() int64 {
	return r.total
}

// Stats returns the reader counters.
func (r *tableReader) Stats() ReaderStats {
	read := r.read.Load()
	accepted := r.accepted.Load()
	return ReaderStats{
		RowsRead:     read,
		RowsAccepted: accepted,
		RowsRejected: read - accepted,
	}
}
