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

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Package core defines the core types for the TabFilter library.
//
// TabFilter streams rows from a tabular source (delimited text, spreadsheet or columnar file),
// keeps the rows accepted by a conjunction of per-column rules, and writes them to a new
// tabular destination, optionally projected onto a subset of columns.
//
// This file contains the row, title and position types plus cell stringification helpers.

// NoHeader is the title row offset that asks a reader to synthesize positional titles.
const NoHeader = -1

// Row is an ordered sequence of cell values. Cells are heterogeneous scalars:
// string, float64, int64, bool, time.Time, or nil for an empty/absent cell.
type Row []interface{}

// Title is the ordered list of column names of a tabular source or destination.
type Title []string

// Index builds the title -> column index mapping. When a name repeats, the first
// occurrence wins.
func (t Title) Index() map[string]int {
	idx := make(map[string]int, len(t))
	for i, name := range t {
		if _, exists := idx[name]; !exists {
			idx[name] = i
		}
	}
	return idx
}

// SynthesizeTitle returns n positional titles "1", "2", ... "n".
func SynthesizeTitle(n int) Title {
	title := make(Title, n)
	for i := range title {
		title[i] = strconv.Itoa(i + 1)
	}
	return title
}

// Position is a zero-based (row, column) coordinate marking where a title row or
// the first data row begins in a source.
type Position struct {
	Row    int `yaml:"row" json:"row"`
	Column int `yaml:"column" json:"column"`
}

// HasHeader reports whether a title position points at a real header row.
func (p Position) HasHeader() bool {
	return p.Row >= 0
}

// Fit pads the row with nil cells or truncates it so that it has exactly n cells.
func (r Row) Fit(n int) Row {
	switch {
	case len(r) == n:
		return r
	case len(r) > n:
		return r[:n]
	default:
		out := make(Row, n)
		copy(out, r)
		return out
	}
}

// CellString renders a cell value as text. nil renders as the empty string,
// integral floats render without a fractional part.
func CellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return string(val)
	case interface{ String() string }:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// IsEmpty reports whether a cell is absent or renders as whitespace only.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	return strings.TrimSpace(CellString(v)) == ""
}
