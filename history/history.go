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

// Package history records the outcome of finished filter tasks.
//
// A Recorder is chosen from a DSN: an empty DSN logs entries, postgres:// and
// mongodb:// DSNs persist them to a table or collection.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// HistoryError provides structured error information for recorder operations.
type HistoryError struct {
	Backend string
	Op      string
	Err     error
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("%s history %s: %v", e.Backend, e.Op, e.Err)
}

func (e *HistoryError) Unwrap() error {
	return e.Err
}

// Entry is one finished task.
type Entry struct {
	Label       string    `bson:"label" json:"label"`
	Source      string    `bson:"source" json:"source"`
	Destination string    `bson:"destination" json:"destination"`
	Status      string    `bson:"status" json:"status"`
	RowsWritten int64     `bson:"rows_written" json:"rows_written"`
	Fault       string    `bson:"fault,omitempty" json:"fault,omitempty"`
	StartedAt   time.Time `bson:"started_at" json:"started_at"`
	FinishedAt  time.Time `bson:"finished_at" json:"finished_at"`
}

// Duration returns how long the task ran.
func (e Entry) Duration() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Recorder persists entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	Close(ctx context.Context) error
}

// Open returns the recorder matching the DSN scheme.
func Open(ctx context.Context, dsn string) (Recorder, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return NewLogRecorder(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		r, err := NewPostgresRecorder(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return r, nil
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		r, err := NewMongoRecorder(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		scheme, _, _ := strings.Cut(dsn, "://")
		return nil, &HistoryError{Backend: "unknown", Op: "open", Err: fmt.Errorf("unsupported history scheme %q", scheme)}
	}
}
