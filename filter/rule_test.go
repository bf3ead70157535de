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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/tabfilter/core"
)

func TestNewRule_CompilesRegexAtRegistration(t *testing.T) {
	_, err := NewRule(Regex, "[a-", "City")
	require.Error(t, err)

	var ruleErr *RuleError
	assert.True(t, errors.As(err, &ruleErr))
}

func TestNewRule_ExpressionIsCompiledLazily(t *testing.T) {
	rule, err := NewRule(Expression, "Y > 1", "Age")
	require.NoError(t, err, "expression errors surface on evaluation, not registration")

	ok, err := rule.Evaluate("")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = rule.Evaluate("5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Y > 1")

	// The compile failure is sticky.
	_, err = rule.Evaluate("6")
	assert.Error(t, err)
}

func TestChain_Accept(t *testing.T) {
	title := core.Title{"Name", "Age", "City"}
	index := title.Index()
	rows := []core.Row{
		{"Alice", "30", "NY"},
		{"Bob", "40", "LA"},
		{"Cy", "22", "NY"},
	}

	age, err := NewRule(List, "30\n40", "Age")
	require.NoError(t, err)
	city, err := NewRule(Regex, "^N", "City")
	require.NoError(t, err)

	tests := []struct {
		name  string
		chain Chain
		want  []bool
	}{
		{"no rules accept everything", Chain{}, []bool{true, true, true}},
		{"list rule", Chain{age}, []bool{true, true, false}},
		{"regex rule", Chain{city}, []bool{true, false, true}},
		{"conjunction", Chain{age, city}, []bool{true, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, row := range rows {
				ok, err := tt.chain.Accept(row, title, index)
				require.NoError(t, err)
				assert.Equal(t, tt.want[i], ok, "row %d", i)
			}
		})
	}
}

func TestChain_ShortCircuits(t *testing.T) {
	title := core.Title{"A", "B"}
	calls := 0
	counting := PredicateFunc{Name: "B", Fn: func(interface{}) (bool, error) {
		calls++
		return true, nil
	}}
	reject := PredicateFunc{Name: "A", Fn: func(interface{}) (bool, error) { return false, nil }}

	ok, err := Chain{reject, counting}.Accept(core.Row{"x", "y"}, title, title.Index())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, calls)
}

func TestChain_MissingColumn(t *testing.T) {
	title := core.Title{"A"}
	rule, err := NewRule(List, "x", "Missing")
	require.NoError(t, err)

	_, err = Chain{rule}.Accept(core.Row{"x"}, title, title.Index())
	require.Error(t, err)
	assert.True(t, core.IsConfigError(err))
	assert.Contains(t, err.Error(), "Missing")
}

func TestChain_Check(t *testing.T) {
	title := core.Title{"A", "B"}
	known, err := NewRule(List, "x", "B")
	require.NoError(t, err)
	missing, err := NewRule(Regex, "^x", "C")
	require.NoError(t, err)

	assert.NoError(t, Chain{known}.Check(title, title.Index()))
	assert.NoError(t, Chain{}.Check(title, title.Index()))

	err = Chain{known, missing}.Check(title, title.Index())
	require.Error(t, err)
	assert.True(t, core.IsConfigError(err))
	assert.Contains(t, err.Error(), "C")
}
