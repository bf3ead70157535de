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
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/aaronlmathis/tabfilter/core"
)

// Variable is the name under which an expression sees the cell value.
const Variable = "X"

// ExpressionError carries the failing expression together with the underlying cause.
type ExpressionError struct {
	Expression string
	Err        error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression [%s] failed: %v", e.Expression, e.Err)
}

func (e *ExpressionError) Unwrap() error {
	return e.Err
}

// exprEnv is the only state an expression can reach.
type exprEnv struct {
	X interface{} `expr:"X"`
}

// helpers extends the expr builtins with names users commonly type.
var helpers = []expr.Option{
	expr.Function("str", func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("str expects 1 argument, got %d", len(params))
		}
		return core.CellString(params[0]), nil
	}, new(func(any) string)),
	expr.Function("strip", func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("strip expects 1 argument, got %d", len(params))
		}
		return strings.TrimSpace(core.CellString(params[0])), nil
	}, new(func(any) string)),
}

// Expr is a boolean expression over the cell value. The source text is kept as is
// and compiled on first evaluation; a compile failure is remembered and returned on
// every later evaluation.
type Expr struct {
	source  string
	program *vm.Program
	err     error
}

// NewExpr wraps an expression source without compiling it.
func NewExpr(source string) *Expr {
	return &Expr{source: source}
}

// Source returns the expression text.
func (e *Expr) Source() string {
	return e.source
}

// Compile compiles the expression if that has not happened yet.
func (e *Expr) Compile() error {
	if e.program != nil || e.err != nil {
		return e.err
	}
	opts := append([]expr.Option{expr.Env(exprEnv{})}, helpers...)
	program, err := expr.Compile(e.source, opts...)
	if err != nil {
		e.err = &ExpressionError{Expression: e.source, Err: err}
		return e.err
	}
	e.program = program
	return nil
}

// Evaluate binds X to value and returns the truthiness of the result.
// Empty cells return false without evaluating.
func (e *Expr) Evaluate(value interface{}) (bool, error) {
	if core.IsEmpty(value) {
		return false, nil
	}
	if err := e.Compile(); err != nil {
		return false, err
	}
	out, err := expr.Run(e.program, exprEnv{X: value})
	if err != nil {
		return false, &ExpressionError{Expression: e.source, Err: err}
	}
	return truthy(out), nil
}

// truthy converts an expression result to a boolean.
func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	default:
		return true
	}
}
