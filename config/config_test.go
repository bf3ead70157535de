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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/tabfilter/core"
	"github.com/aaronlmathis/tabfilter/filter"
)

const fullJob = `
source: in/people.csv
destination: out/adults
separator: ";"
title: {row: 1, column: 2}
data: {row: 3, column: 2}
columns: [City, "", Name]
filters:
  - {kind: list, column: Age, pattern: "30\n40"}
  - {kind: regex, column: City, pattern: "^N"}
  - {kind: expr, column: Age, pattern: "   "}
budget: 45s
`

func TestLoadJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullJob), 0o644))

	job, err := LoadJob(path)
	require.NoError(t, err)

	assert.Equal(t, "in/people.csv", job.Source)
	assert.Equal(t, "out/adults.xlsx", job.Destination)
	assert.Equal(t, ";", job.Separator)
	assert.Equal(t, ColumnList{"City", "Name"}, job.Columns)
	assert.Equal(t, 45*time.Second, job.Budget)

	title, data := job.Positions()
	assert.Equal(t, core.Position{Row: 0, Column: 1}, title)
	assert.Equal(t, core.Position{Row: 2, Column: 1}, data)

	rules, err := job.Rules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, filter.List, rules[0].Kind())
	assert.Equal(t, "Age", rules[0].Column())
	assert.Equal(t, filter.Regex, rules[1].Kind())
}

func TestParseJob_Defaults(t *testing.T) {
	job, err := ParseJob([]byte("source: a.xlsx\ndestination: b.csv\n"))
	require.NoError(t, err)

	assert.Equal(t, ",", job.Separator)
	title, data := job.Positions()
	assert.Equal(t, core.Position{Row: 0, Column: 0}, title)
	assert.Equal(t, core.Position{Row: 1, Column: 0}, data)
	assert.Equal(t, time.Duration(0), job.Budget)
}

func TestParseJob_NoHeader(t *testing.T) {
	job, err := ParseJob([]byte("source: a.csv\ndestination: b.csv\ntitle: {row: 0, column: 1}\n"))
	require.NoError(t, err)

	title, data := job.Positions()
	assert.Equal(t, core.NoHeader, title.Row)
	assert.False(t, title.HasHeader())
	assert.Equal(t, core.Position{Row: 0, Column: 0}, data)
}

func TestParseJob_ColumnBlock(t *testing.T) {
	doc := "source: a.csv\ndestination: b.csv\ncolumns: |\n  City\n\n  Name\n"
	job, err := ParseJob([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, ColumnList{"City", "Name"}, job.Columns)
}

func TestParseJob_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing source", "destination: b.csv\n", "source is required"},
		{"bad data row", "source: a\ndestination: b\ndata: {row: 0, column: 1}\n", "data position"},
		{"unknown kind", "source: a\ndestination: b\nfilters: [{kind: sql, column: A, pattern: x}]\n", "unsupported"},
		{"missing column", "source: a\ndestination: b\nfilters: [{kind: list, pattern: x}]\n", "column is required"},
		{"negative budget", "source: a\ndestination: b\nbudget: -1s\n", "budget"},
		{"bad yaml", "source: [a\n", "parse job file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJob([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestJob_RulesRejectsBadRegex(t *testing.T) {
	job := &Job{Filters: []FilterSpec{{Kind: "regex", Column: "A", Pattern: "("}}}
	_, err := job.Rules()
	var ruleErr *filter.RuleError
	assert.ErrorAs(t, err, &ruleErr)
}

func TestToPosition(t *testing.T) {
	assert.Equal(t, core.Position{Row: core.NoHeader, Column: 0}, ToPosition(0, 1))
	assert.Equal(t, core.Position{Row: 4, Column: 2}, ToPosition(5, 3))
	assert.Equal(t, core.Position{Row: 0, Column: 0}, ToPosition(1, 0))
}

func TestSettings(t *testing.T) {
	env := map[string]string{
		EnvBudget:     "10s",
		EnvPoll:       "250ms",
		EnvHistoryDSN: " postgres://localhost/db ",
		EnvLogLevel:   "debug",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	s, err := settingsFrom(lookup)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, s.Budget)
	assert.Equal(t, 250*time.Millisecond, s.PollInterval)
	assert.Equal(t, "postgres://localhost/db", s.HistoryDSN)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "console", s.LogFormat)

	env[EnvBudget] = "soon"
	_, err = settingsFrom(lookup)
	assert.ErrorContains(t, err, EnvBudget)

	env[EnvBudget] = "0s"
	_, err = settingsFrom(lookup)
	assert.Error(t, err)
}

func TestLoadSettings_Defaults(t *testing.T) {
	t.Setenv(EnvBudget, "")
	t.Setenv(EnvPoll, "")
	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, s.Budget)
	assert.Equal(t, time.Second, s.PollInterval)
}
