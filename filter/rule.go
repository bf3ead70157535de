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
)

// RuleError reports a pattern that could not be compiled at registration.
type RuleError struct {
	Kind    Kind
	Pattern string
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Kind, e.Pattern, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Rule is a compiled (kind, pattern, column) triple. It implements core.Predicate.
//
// Regex patterns are compiled by NewRule, list patterns are tokenized per evaluation,
// and expression patterns are kept as text until the first evaluation.
type Rule struct {
	kind    Kind
	pattern string
	column  string
	re      *regexp.Regexp
	expr    *Expr
}

// NewRule compiles a rule. It fails only for an invalid regex or an unknown kind.
func NewRule(kind Kind, pattern, column string) (*Rule, error) {
	r := &Rule{kind: kind, pattern: pattern, column: column}
	switch kind {
	case List:
	case Regex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &RuleError{Kind: kind, Pattern: pattern, Err: err}
		}
		r.re = re
	case Expression:
		r.expr = NewExpr(pattern)
	default:
		return nil, &RuleError{Kind: kind, Pattern: pattern, Err: fmt.Errorf("unknown kind %d", int(kind))}
	}
	return r, nil
}

// Kind returns the rule kind.
func (r *Rule) Kind() Kind { return r.kind }

// Pattern returns the pattern text as registered.
func (r *Rule) Pattern() string { return r.pattern }

// Column returns the target column name.
func (r *Rule) Column() string { return r.column }

// Evaluate reports whether value satisfies the rule.
func (r *Rule) Evaluate(value interface{}) (bool, error) {
	switch r.kind {
	case List:
		return MatchList(value, r.pattern), nil
	case Regex:
		return MatchRegex(value, r.re), nil
	case Expression:
		return r.expr.Evaluate(value)
	default:
		return false, fmt.Errorf("unknown kind %d", int(r.kind))
	}
}

// String renders the rule for logs.
func (r *Rule) String() string {
	return fmt.Sprintf("%s on %q: %q", r.kind, r.column, r.pattern)
}
