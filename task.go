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
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBudget is the wall-clock time a task may spend moving rows.
const DefaultBudget = 120 * time.Second

// ErrAlreadyStarted is returned when a task is started twice.
var ErrAlreadyStarted = errors.New("task already started")

// Status is the lifecycle state of a Task.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	// StatusDone means the source was exhausted and the writer finalized.
	StatusDone
	// StatusFaulted means a read, write or finalize step failed. The
	// destination is not authoritative.
	StatusFaulted
	// StatusExpired means the budget ran out. Rows accepted before the cutoff
	// were written and the writer was finalized.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFaulted:
		return "faulted"
	case StatusExpired:
		return "expired"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFaulted || s == StatusExpired
}

// Task copies the rows a reader accepts into a writer on its own goroutine.
//
// The caller builds the reader (with its filters) and the writer, then calls
// Start and polls Progress, IsDone, FaultMessage and RowsWritten, or waits on Done.
type Task struct {
	reader      TableReader
	writer      TableWriter
	budget      time.Duration
	source      string
	destination string
	logger      zerolog.Logger

	mu         sync.Mutex
	status     Status
	fault      error
	startedAt  time.Time
	finishedAt time.Time
	done       chan struct{}
}

// TaskOption configures a Task.
type TaskOption func(*Task)

// WithBudget overrides DefaultBudget. Non-positive values keep the default.
func WithBudget(d time.Duration) TaskOption {
	return func(t *Task) {
		if d > 0 {
			t.budget = d
		}
	}
}

// WithLocations records where the rows come from and go to, for labels and history.
func WithLocations(source, destination string) TaskOption {
	return func(t *Task) {
		t.source = source
		t.destination = destination
	}
}

// WithTaskLogger sets the logger used for the task's own messages.
func WithTaskLogger(logger zerolog.Logger) TaskOption {
	return func(t *Task) {
		t.logger = logger
	}
}

// NewTask binds a reader and a writer. Nothing runs until Start.
func NewTask(reader TableReader, writer TableWriter, opts ...TaskOption) *Task {
	t := &Task{
		reader: reader,
		writer: writer,
		budget: DefaultBudget,
		logger: log.With().Str("component", "task").Logger(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the copy loop and returns immediately.
func (t *Task) Start() error {
	if err := t.begin(); err != nil {
		return err
	}
	go t.run(context.Background())
	return nil
}

// Run executes the copy loop on the calling goroutine and returns the fault,
// if any. Cancelling ctx faults the task.
func (t *Task) Run(ctx context.Context) error {
	if err := t.begin(); err != nil {
		return err
	}
	t.run(ctx)
	return t.Err()
}

func (t *Task) begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return ErrAlreadyStarted
	}
	t.status = StatusRunning
	t.startedAt = time.Now()
	return nil
}

func (t *Task) run(parent context.Context) {
	status := StatusDone
	var fault error

	defer func() {
		if r := recover(); r != nil {
			status = StatusFaulted
			fault = fmt.Errorf("task panicked: %v", r)
		}
		t.finish(status, fault)
	}()

	ctx, cancel := context.WithTimeout(parent, t.budget)
	defer cancel()

	expired := func(err error) bool {
		return errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil
	}

	for {
		row, err := t.reader.ReadFilteredRow(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil {
			err = t.writer.Write(ctx, row)
		}
		if err != nil {
			if expired(err) {
				status = StatusExpired
			} else {
				status, fault = StatusFaulted, err
			}
			break
		}
	}

	if err := t.reader.Close(); err != nil {
		t.logger.Warn().Err(err).Str("source", t.source).Msg("failed to close reader")
	}
	if status == StatusFaulted {
		return
	}
	if err := t.writer.Finalize(); err != nil {
		status, fault = StatusFaulted, err
	}
}

func (t *Task) finish(status Status, fault error) {
	t.mu.Lock()
	t.status = status
	t.fault = fault
	t.finishedAt = time.Now()
	t.mu.Unlock()
	close(t.done)
}

// Progress is the reader's progress in [0, 1].
func (t *Task) Progress() float64 {
	return t.reader.Progress()
}

// IsDone reports whether the task reached a terminal status.
func (t *Task) IsDone() bool {
	return t.Status().Terminal()
}

// Done is closed when the task reaches a terminal status.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// BudgetExpired reports whether the task stopped because its budget ran out.
func (t *Task) BudgetExpired() bool {
	return t.Status() == StatusExpired
}

// Err returns the fault, or nil.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fault
}

// FaultMessage returns the fault text, or "" when there is none.
func (t *Task) FaultMessage() string {
	if err := t.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// RowsWritten is the number of rows the writer accepted.
func (t *Task) RowsWritten() int64 {
	return t.writer.RowsWritten()
}

// Elapsed is the time since Start, frozen once the task finishes.
func (t *Task) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.startedAt.IsZero():
		return 0
	case t.finishedAt.IsZero():
		return time.Since(t.startedAt)
	default:
		return t.finishedAt.Sub(t.startedAt)
	}
}

// Times returns when the task started and finished. Either may be zero.
func (t *Task) Times() (started, finished time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt, t.finishedAt
}

// Source returns the source location given to WithLocations.
func (t *Task) Source() string {
	return t.source
}

// Destination returns the destination location given to WithLocations.
func (t *Task) Destination() string {
	return t.destination
}
