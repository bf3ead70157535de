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
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/aaronlmathis/tabfilter/core"
)

// WriterError wraps structured error information for the tabular writers.
type WriterError struct {
	Format string
	Op     string
	Err    error
}

func (e *WriterError) Error() string {
	return fmt.Sprintf("%s writer %s: %v", e.Format, e.Op, e.Err)
}

func (e *WriterError) Unwrap() error {
	return e.Err
}

// Projection selects and reorders row cells to match a desired column list.
type Projection struct {
	header  core.Title
	indices []int
}

// NewProjection maps each desired name to its position in title. Blank names and
// names absent from title are dropped. When nothing remains, the projection is
// the identity and the header is the full title.
func NewProjection(title core.Title, desired []string) Projection {
	index := title.Index()
	p := Projection{}
	for _, name := range desired {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			log.Warn().Str("column", name).Strs("title", title).Msg("desired column not in title, dropped from output")
			continue
		}
		p.header = append(p.header, name)
		p.indices = append(p.indices, i)
	}
	if len(p.indices) == 0 {
		p.header = append(core.Title(nil), title...)
		p.indices = nil
	}
	return p
}

// Header returns the column names written as the first output row.
func (p Projection) Header() core.Title {
	return p.header
}

// Apply returns row reordered to the projection. Cells beyond the row are nil.
func (p Projection) Apply(row core.Row) core.Row {
	if p.indices == nil {
		return row
	}
	out := make(core.Row, len(p.indices))
	for i, idx := range p.indices {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}
