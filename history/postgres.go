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

package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DefaultTable is the table PostgresRecorder writes to.
const DefaultTable = "tabfilter_history"

// PostgresRecorder appends entries to a PostgreSQL table, creating it if needed.
type PostgresRecorder struct {
	db     *sql.DB
	table  string
	insert string
}

// NewPostgresRecorder connects to dsn and ensures the history table exists.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &HistoryError{Backend: "postgres", Op: "connect", Err: err}
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &HistoryError{Backend: "postgres", Op: "ping", Err: err}
	}

	r := &PostgresRecorder{db: db, table: DefaultTable}
	if err := r.createTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	r.insert = fmt.Sprintf(`INSERT INTO %s
		(label, source, destination, status, rows_written, fault, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, r.table)
	return r, nil
}

func (r *PostgresRecorder) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		label TEXT NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		status TEXT NOT NULL,
		rows_written BIGINT NOT NULL,
		fault TEXT,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`, r.table)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return &HistoryError{Backend: "postgres", Op: "create_table", Err: err}
	}
	return nil
}

func (r *PostgresRecorder) Record(ctx context.Context, entry Entry) error {
	var fault sql.NullString
	if entry.Fault != "" {
		fault = sql.NullString{String: entry.Fault, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, r.insert,
		entry.Label, entry.Source, entry.Destination, entry.Status,
		entry.RowsWritten, fault, entry.StartedAt, entry.FinishedAt)
	if err != nil {
		return &HistoryError{Backend: "postgres", Op: "insert", Err: err}
	}
	return nil
}

// Count returns how many entries carry label.
func (r *PostgresRecorder) Count(ctx context.Context, label string) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE label = $1", r.table)
	if err := r.db.QueryRowContext(ctx, query, label).Scan(&n); err != nil {
		return 0, &HistoryError{Backend: "postgres", Op: "count", Err: err}
	}
	return n, nil
}

func (r *PostgresRecorder) Close(ctx context.Context) error {
	if err := r.db.Close(); err != nil {
		return &HistoryError{Backend: "postgres", Op: "close", Err: err}
	}
	return nil
}
