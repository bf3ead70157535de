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
	"math"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aaronlmathis/tabfilter/history"
)

// BarWidth is the number of cells in a rendered progress bar.
const BarWidth = 35

// ErrDuplicateLabel is returned when a label is scheduled while a task with the
// same label is still registered.
var ErrDuplicateLabel = errors.New("a task with this label is already scheduled")

// Label names a task after the base names of its source and destination.
func Label(source, destination string) string {
	return base(source) + "->" + base(destination)
}

func base(location string) string {
	return path.Base(filepath.ToSlash(location))
}

// RenderBar draws progress as width cells of "▋" padded with spaces.
func RenderBar(progress float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(clamp(progress) * float64(width))
	return strings.Repeat("▋", filled) + strings.Repeat(" ", width-filled)
}

func clamp(p float64) float64 {
	switch {
	case p < 0 || math.IsNaN(p):
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Report is a snapshot of one task taken during a sweep.
type Report struct {
	Label       string
	Status      Status
	Progress    float64
	RowsWritten int64
	Fault       string
	Elapsed     time.Duration
}

// Final reports whether the task was reaped by the sweep that produced this report.
func (r Report) Final() bool {
	return r.Status.Terminal()
}

// String renders the report the way the progress log shows it.
func (r Report) String() string {
	switch r.Status {
	case StatusDone, StatusExpired:
		msg := fmt.Sprintf("%s finished, %s rows written in %s", r.Label, humanize.Comma(r.RowsWritten), r.Elapsed.Round(time.Millisecond))
		if r.Status == StatusExpired {
			msg += " (budget expired)"
		}
		return msg
	case StatusFaulted:
		return fmt.Sprintf("%s failed: %s", r.Label, r.Fault)
	default:
		return fmt.Sprintf("%s progress: %s %6.2f%%", r.Label, RenderBar(r.Progress, BarWidth), 100*clamp(r.Progress))
	}
}

// Scheduler keeps the registry of running tasks. A sweep snapshots the registry,
// reports every task and removes the finished ones. The registry lock is never
// held across a report handler or history call.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*Task

	poll     time.Duration
	recorder history.Recorder
	handler  func(Report)
	logger   zerolog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithPollInterval sets the sweep cadence used by Run and Wait.
func WithPollInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.poll = d
		}
	}
}

// WithRecorder records every reaped task.
func WithRecorder(r history.Recorder) SchedulerOption {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// WithReportHandler receives every report produced by a sweep.
func WithReportHandler(fn func(Report)) SchedulerOption {
	return func(s *Scheduler) {
		s.handler = fn
	}
}

// WithLogger sets the logger used for progress lines.
func WithLogger(logger zerolog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler returns an empty scheduler polling once per second.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		tasks:  make(map[string]*Task),
		poll:   time.Second,
		logger: log.With().Str("component", "scheduler").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule registers task under label and starts it. An empty label is derived
// from the task's locations.
func (s *Scheduler) Schedule(label string, task *Task) error {
	if label == "" {
		label = Label(task.Source(), task.Destination())
	}

	s.mu.Lock()
	if _, ok := s.tasks[label]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, label)
	}
	s.tasks[label] = task
	s.mu.Unlock()

	if err := task.Start(); err != nil {
		s.mu.Lock()
		delete(s.tasks, label)
		s.mu.Unlock()
		return err
	}
	s.logger.Info().Str("label", label).Msg("task scheduled")
	return nil
}

// Len returns the number of registered tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Labels returns the registered labels in sorted order.
func (s *Scheduler) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	labels := make([]string, 0, len(s.tasks))
	for label := range s.tasks {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Sweep reports every registered task once and reaps the finished ones.
func (s *Scheduler) Sweep(ctx context.Context) []Report {
	type item struct {
		label string
		task  *Task
	}

	s.mu.Lock()
	snapshot := make([]item, 0, len(s.tasks))
	for label, task := range s.tasks {
		snapshot = append(snapshot, item{label, task})
	}
	s.mu.Unlock()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].label < snapshot[j].label })

	reports := make([]Report, 0, len(snapshot))
	for _, it := range snapshot {
		status := it.task.Status()
		r := Report{
			Label:       it.label,
			Status:      status,
			Progress:    it.task.Progress(),
			RowsWritten: it.task.RowsWritten(),
			Fault:       it.task.FaultMessage(),
			Elapsed:     it.task.Elapsed(),
		}
		reports = append(reports, r)

		if status.Terminal() {
			s.mu.Lock()
			if s.tasks[it.label] == it.task {
				delete(s.tasks, it.label)
			}
			s.mu.Unlock()
			s.record(ctx, it.task, r)
		}
		s.emit(r)
	}
	return reports
}

func (s *Scheduler) emit(r Report) {
	switch r.Status {
	case StatusFaulted:
		s.logger.Error().Str("label", r.Label).Str("fault", r.Fault).Msg(r.String())
	case StatusDone, StatusExpired:
		s.logger.Info().Str("label", r.Label).Int64("rows_written", r.RowsWritten).Bool("budget_expired", r.Status == StatusExpired).Msg(r.String())
	default:
		s.logger.Info().Str("label", r.Label).Float64("progress", r.Progress).Msg(r.String())
	}
	if s.handler != nil {
		s.handler(r)
	}
}

func (s *Scheduler) record(ctx context.Context, task *Task, r Report) {
	if s.recorder == nil {
		return
	}
	started, finished := task.Times()
	entry := history.Entry{
		Label:       r.Label,
		Source:      task.Source(),
		Destination: task.Destination(),
		Status:      r.Status.String(),
		RowsWritten: r.RowsWritten,
		Fault:       r.Fault,
		StartedAt:   started,
		FinishedAt:  finished,
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("label", r.Label).Msg("failed to record task history")
	}
}

// Run sweeps at the poll interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Wait sweeps at the poll interval until the registry is empty or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		s.Sweep(ctx)
		if s.Len() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
