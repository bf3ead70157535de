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

// Package config loads TabFilter job files and runtime settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aaronlmathis/tabfilter/core"
	"github.com/aaronlmathis/tabfilter/filter"
	"github.com/aaronlmathis/tabfilter/types"
)

// Cell is a 1-based (row, column) pair as users count them. Row 0 in a title
// cell means the source has no header.
type Cell struct {
	Row    int `yaml:"row"`
	Column int `yaml:"column"`
}

// FilterSpec is one filter rule as written in a job file.
type FilterSpec struct {
	Kind    string `yaml:"kind"`
	Column  string `yaml:"column"`
	Pattern string `yaml:"pattern"`
}

// ColumnList is the desired output columns. In YAML it is either a sequence or
// a block of newline separated names.
type ColumnList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *ColumnList) UnmarshalYAML(node *yaml.Node) error {
	var names []string
	switch node.Kind {
	case yaml.ScalarNode:
		names = strings.Split(node.Value, "\n")
	case yaml.SequenceNode:
		if err := node.Decode(&names); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: columns must be a list or a block of names", node.Line)
	}
	*c = ParseColumns(names)
	return nil
}

// ParseColumns trims names and drops blanks.
func ParseColumns(names []string) ColumnList {
	var out ColumnList
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Job describes one filter-and-copy run.
type Job struct {
	Source      string        `yaml:"source"`
	Destination string        `yaml:"destination"`
	Separator   string        `yaml:"separator"`
	Title       *Cell         `yaml:"title"`
	Data        *Cell         `yaml:"data"`
	Columns     ColumnList    `yaml:"columns"`
	Filters     []FilterSpec  `yaml:"filters"`
	Budget      time.Duration `yaml:"budget"`
}

// LoadJob reads and validates a YAML job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return ParseJob(data)
}

// ParseJob decodes, defaults and validates a YAML job document.
func ParseJob(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse job file: %w", err)
	}
	job.ApplyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// ApplyDefaults fills the fields users usually leave out. The header defaults
// to the first row and data to the row after it.
func (j *Job) ApplyDefaults() {
	if j.Title == nil {
		j.Title = &Cell{Row: 1, Column: 1}
	}
	if j.Data == nil {
		j.Data = &Cell{Row: j.Title.Row + 1, Column: max(j.Title.Column, 1)}
	}
	if j.Separator == "" {
		j.Separator = ","
	}
	j.Destination = types.EnsureExtension(strings.TrimSpace(j.Destination))
}

// Validate checks the job for errors that would only surface after a task starts.
func (j *Job) Validate() error {
	var errs []error
	if strings.TrimSpace(j.Source) == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if j.Destination == "" {
		errs = append(errs, errors.New("destination is required"))
	}
	if j.Title != nil && (j.Title.Row < 0 || j.Title.Column < 0) {
		errs = append(errs, fmt.Errorf("title position %d,%d must not be negative", j.Title.Row, j.Title.Column))
	}
	if j.Data != nil && (j.Data.Row < 1 || j.Data.Column < 1) {
		errs = append(errs, fmt.Errorf("data position %d,%d must start at 1", j.Data.Row, j.Data.Column))
	}
	if j.Budget < 0 {
		errs = append(errs, fmt.Errorf("budget %s must not be negative", j.Budget))
	}
	for i, f := range j.Filters {
		if strings.TrimSpace(f.Pattern) == "" {
			continue
		}
		if _, err := filter.ParseKind(f.Kind); err != nil {
			errs = append(errs, fmt.Errorf("filter %d: %w", i+1, err))
		}
		if strings.TrimSpace(f.Column) == "" {
			errs = append(errs, fmt.Errorf("filter %d: column is required", i+1))
		}
	}
	return errors.Join(errs...)
}

// Positions converts the 1-based job cells to zero-based reader positions.
func (j *Job) Positions() (title, data core.Position) {
	t := Cell{Row: 1, Column: 1}
	if j.Title != nil {
		t = *j.Title
	}
	d := Cell{Row: t.Row + 1, Column: max(t.Column, 1)}
	if j.Data != nil {
		d = *j.Data
	}
	return ToPosition(t.Row, t.Column), ToPosition(d.Row, d.Column)
}

// ToPosition converts a 1-based row and column to a zero-based position.
// Row 0 becomes core.NoHeader.
func ToPosition(row, column int) core.Position {
	p := core.Position{Row: row - 1, Column: max(column-1, 0)}
	if row <= 0 {
		p.Row = core.NoHeader
	}
	return p
}

// Rules compiles the job's filters in order. Filters with a blank pattern are skipped.
func (j *Job) Rules() ([]*filter.Rule, error) {
	var rules []*filter.Rule
	for i, f := range j.Filters {
		if strings.TrimSpace(f.Pattern) == "" {
			continue
		}
		kind, err := filter.ParseKind(f.Kind)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i+1, err)
		}
		rule, err := filter.NewRule(kind, strings.TrimSpace(f.Pattern), strings.TrimSpace(f.Column))
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
