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
	"fmt"
	"regexp"
	"strings"

	"github.com/aaronlmathis/tabfilter/core"
)

// Package filter provides the predicate evaluator used by TabFilter readers.
//
// A predicate decides whether one cell value satisfies one pattern. Three kinds exist:
//   - List: the pattern is a block of tokens (tab separated if any tab is present, else
//     newline separated); the cell must equal one token after trimming.
//   - Regex: the pattern is a regular expression searched anywhere in the trimmed cell.
//   - Expression: the pattern is a boolean expression over the variable X, evaluated
//     by a sandboxed interpreter (see expression.go).
//
// Empty cells never match, whatever the kind.

// Kind selects how a pattern is interpreted.
type Kind int

const (
	// List matches the cell against an exact token list.
	List Kind = iota
	// Expression evaluates a boolean expression bound to the cell value.
	Expression
	// Regex searches a regular expression in the cell value.
	Regex
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case List:
		return "list"
	case Expression:
		return "expr"
	case Regex:
		return "regex"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a kind name into a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "list", "raw_list", "exact":
		return List, nil
	case "regex", "regexp", "reg_exp":
		return Regex, nil
	case "expr", "expression", "exp":
		return Expression, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrUnsupportedKind, name)
	}
}

// Match reports whether value satisfies pattern under the given kind.
// It compiles regex and expression patterns on every call; readers use Rule instead.
func Match(kind Kind, value interface{}, pattern string) (bool, error) {
	switch kind {
	case List:
		return MatchList(value, pattern), nil
	case Regex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, &RuleError{Kind: kind, Pattern: pattern, Err: err}
		}
		return MatchRegex(value, re), nil
	case Expression:
		return NewExpr(pattern).Evaluate(value)
	default:
		return false, fmt.Errorf("%w: %d", core.ErrUnsupportedKind, int(kind))
	}
}

// MatchList reports whether the trimmed cell equals one trimmed token of pattern.
// Tokens are tab separated when the pattern contains a tab, newline separated otherwise.
func MatchList(value interface{}, pattern string) bool {
	if core.IsEmpty(value) {
		return false
	}
	cell := strings.TrimSpace(core.CellString(value))

	pattern = strings.TrimSpace(pattern)
	sep := "\n"
	if strings.Contains(pattern, "\t") {
		sep = "\t"
	}
	for _, token := range strings.Split(pattern, sep) {
		if strings.TrimSpace(token) == cell {
			return true
		}
	}
	return false
}

// MatchRegex reports whether re finds a match anywhere in the trimmed cell.
func MatchRegex(value interface{}, re *regexp.Regexp) bool {
	if core.IsEmpty(value) {
		return false
	}
	return re.MatchString(strings.TrimSpace(core.CellString(value)))
}
