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

package tabfilter

import (
	"github.com/aaronlmathis/tabfilter/core"
)

// Package tabfilter streams rows from a tabular source through per-column filter
// rules into a new tabular file.
//
// Core Concepts:
//   - TableReader: reads a title and rows from delimited text, a workbook or Parquet,
//     and applies its registered filter rules (see the readers package).
//   - TableWriter: writes a header and rows, optionally projected to a subset of
//     columns (see the writers package).
//   - Task: runs one reader/writer pair on its own goroutine within a wall-clock budget.
//   - Scheduler: a registry of running tasks swept at a fixed cadence that reports
//     progress and reaps finished tasks.
//
// Example usage:
//
//	r, err := types.OpenReader(ctx, "people.xlsx", core.Position{Row: 0}, core.Position{Row: 1})
//	if err != nil { log.Fatal(err) }
//	rule, _ := filter.NewRule(filter.Expression, "X > 25", "Age")
//	r.AddFilter(rule)
//	w, err := types.CreateWriter(ctx, "adults.csv", r.Title(), []string{"City", "Name"})
//	if err != nil { log.Fatal(err) }
//	task := tabfilter.NewTask(r, w)
//	task.Start()
//	<-task.Done()

// TableReader is the reader half of a task.
type TableReader = core.TableReader

// TableWriter is the writer half of a task.
type TableWriter = core.TableWriter

// Predicate is a filter rule a reader evaluates per row.
type Predicate = core.Predicate
