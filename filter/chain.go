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

package filter

import (
	"github.com/aaronlmathis/tabfilter/core"
)

// Chain is an ordered conjunction of predicates. Evaluation follows registration
// order and stops at the first predicate that rejects the row.
type Chain []core.Predicate

// Accept reports whether row passes every predicate. index maps column names to
// cell positions; a predicate naming an unknown column yields a *core.ConfigError.
func (c Chain) Accept(row core.Row, title core.Title, index map[string]int) (bool, error) {
	for _, p := range c {
		i, ok := index[p.Column()]
		if !ok {
			return false, &core.ConfigError{Column: p.Column(), Title: title}
		}
		var cell interface{}
		if i < len(row) {
			cell = row[i]
		}
		include, err := p.Evaluate(cell)
		if err != nil {
			return false, err
		}
		if !include {
			return false, nil
		}
	}
	return true, nil
}

// Check returns a *core.ConfigError for the first predicate whose column is not
// in index.
func (c Chain) Check(title core.Title, index map[string]int) error {
	for _, p := range c {
		if _, ok := index[p.Column()]; !ok {
			return &core.ConfigError{Column: p.Column(), Title: title}
		}
	}
	return nil
}

// PredicateFunc adapts a plain function to core.Predicate.
type PredicateFunc struct {
	Name string
	Fn   func(value interface{}) (bool, error)
}

// Column implements core.Predicate.
func (f PredicateFunc) Column() string { return f.Name }

// Evaluate implements core.Predicate.
func (f PredicateFunc) Evaluate(value interface{}) (bool, error) { return f.Fn(value) }
