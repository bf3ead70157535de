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

package core

import "context"

// Package core defines the core interfaces for the TabFilter library.
//
// This file contains the reader, writer and predicate interfaces that the job
// orchestrator depends on. Format variants live in the readers and writers packages.

// Predicate decides whether one cell of a row satisfies a rule.
// Column names the title entry the predicate reads its cell from.
type Predicate interface {
	// Column returns the target column name.
	Column() string
	// Evaluate reports whether the cell value satisfies the predicate.
	Evaluate(value interface{}) (bool, error)
}

// TableReader streams rows out of a tabular source.
// Implementations are not safe for concurrent reads; Progress and Total may be
// called from any goroutine.
type TableReader interface {
	// Title returns the column names established at construction.
	Title() Title
	// AddFilter appends a predicate to the reader's rule list.
	AddFilter(p Predicate) error
	// ReadRow returns the next raw row or io.EOF when the source is exhausted.
	ReadRow(ctx context.Context) (Row, error)
	// ReadFilteredRow returns the next row accepted by every registered predicate,
	// or io.EOF when the source is exhausted.
	ReadFilteredRow(ctx context.Context) (Row, error)
	// Progress returns the fraction of data rows read so far, in [0, 1].
	Progress() float64
	// Total returns the estimated number of data rows in the source.
	Total() int64
	// Close releases the underlying source. It is idempotent.
	Close() error
}

// TableWriter writes rows into a tabular destination.
// The header is written when the writer is constructed.
type TableWriter interface {
	// Header returns the header row that was written.
	Header() Title
	// Write appends one row, applying the writer's projection.
	Write(ctx context.Context, row Row) error
	// RowsWritten returns the number of data rows written, excluding the header.
	RowsWritten() int64
	// Finalize persists the destination. It must be called once, after the last Write.
	Finalize() error
}
