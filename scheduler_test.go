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
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/tabfilter/filter"
	"github.com/aaronlmathis/tabfilter/history"
)

// memRecorder keeps recorded entries in memory.
type memRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
	fail    error
}

func (m *memRecorder) Record(ctx context.Context, e history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memRecorder) Close(ctx context.Context) error { return nil }

func (m *memRecorder) Entries() []history.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Entry(nil), m.entries...)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		src, dst string
		want     string
	}{
		{"data/in.xlsx", "out/result.csv", "in.xlsx->result.csv"},
		{"in.csv", "out.parquet", "in.csv->out.parquet"},
		{"s3://bucket/raw/people.csv", "/tmp/adults.xlsx", "people.csv->adults.xlsx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.src, tt.dst))
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		name     string
		progress float64
		filled   int
	}{
		{"empty", 0, 0},
		{"half", 0.5, 17},
		{"full", 1, BarWidth},
		{"over", 1.7, BarWidth},
		{"negative", -0.2, 0},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := RenderBar(tt.progress, BarWidth)
			assert.Equal(t, tt.filled, strings.Count(bar, "▋"))
			assert.Equal(t, BarWidth-tt.filled, strings.Count(bar, " "))
		})
	}
	assert.Empty(t, RenderBar(0.5, 0))
}

func TestReport_String(t *testing.T) {
	running := Report{Label: "a->b", Status: StatusRunning, Progress: 0.25}
	assert.Contains(t, running.String(), "a->b progress:")
	assert.Contains(t, running.String(), " 25.00%")
	assert.False(t, running.Final())

	done := Report{Label: "a->b", Status: StatusDone, RowsWritten: 12345, Elapsed: 1500 * time.Millisecond}
	assert.Equal(t, "a->b finished, 12,345 rows written in 1.5s", done.String())
	assert.True(t, done.Final())

	expired := done
	expired.Status = StatusExpired
	assert.True(t, strings.HasSuffix(expired.String(), "(budget expired)"))

	failed := Report{Label: "a->b", Status: StatusFaulted, Fault: "expression [Y > 3] failed"}
	assert.Equal(t, "a->b failed: expression [Y > 3] failed", failed.String())
}

func TestScheduler_DuplicateLabel(t *testing.T) {
	s := NewScheduler(WithLogger(zerolog.Nop()))

	blocker := &endlessReader{interval: time.Millisecond}
	first := NewTask(blocker, &fakeWriter{}, WithBudget(300*time.Millisecond))
	require.NoError(t, s.Schedule("job", first))

	second := NewTask(openPeople(t), &fakeWriter{})
	err := s.Schedule("job", second)
	assert.ErrorIs(t, err, ErrDuplicateLabel)
	assert.Equal(t, StatusPending, second.Status())
	assert.Equal(t, []string{"job"}, s.Labels())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reports := s.Sweep(ctx)
	require.Len(t, reports, 1)
	assert.Equal(t, StatusRunning, reports[0].Status)
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_RestartedTaskRejected(t *testing.T) {
	s := NewScheduler(WithLogger(zerolog.Nop()))
	task := NewTask(openPeople(t), &fakeWriter{})
	require.NoError(t, task.Start())
	<-task.Done()

	err := s.Schedule("again", task)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_SweepReapsFinished(t *testing.T) {
	rec := &memRecorder{}
	var (
		mu      sync.Mutex
		handled []Report
	)
	s := NewScheduler(
		WithLogger(zerolog.Nop()),
		WithRecorder(rec),
		WithReportHandler(func(r Report) {
			mu.Lock()
			handled = append(handled, r)
			mu.Unlock()
		}),
	)

	ok := openPeople(t)
	require.NoError(t, ok.AddRule(filter.Regex, "^N", "City"))
	okTask := NewTask(ok, &fakeWriter{}, WithLocations("in/people.csv", "out/ny.csv"))

	bad := openPeople(t)
	require.NoError(t, bad.AddRule(filter.Expression, "Y > 3", "Age"))
	badTask := NewTask(bad, &fakeWriter{}, WithLocations("in/people.csv", "out/bad.csv"))

	require.NoError(t, s.Schedule("", okTask))
	require.NoError(t, s.Schedule("", badTask))
	<-okTask.Done()
	<-badTask.Done()

	reports := s.Sweep(context.Background())
	require.Len(t, reports, 2)
	assert.Equal(t, "people.csv->bad.csv", reports[0].Label)
	assert.Equal(t, StatusFaulted, reports[0].Status)
	assert.Contains(t, reports[0].Fault, "Y > 3")
	assert.Equal(t, "people.csv->ny.csv", reports[1].Label)
	assert.Equal(t, StatusDone, reports[1].Status)
	assert.Equal(t, int64(2), reports[1].RowsWritten)

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Sweep(context.Background()))

	mu.Lock()
	assert.Len(t, handled, 2)
	mu.Unlock()

	entries := rec.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "in/people.csv", e.Source)
		assert.False(t, e.StartedAt.IsZero())
		assert.False(t, e.FinishedAt.Before(e.StartedAt))
	}

	// A finished label can be reused.
	again := NewTask(openPeople(t), &fakeWriter{})
	assert.NoError(t, s.Schedule("people.csv->ny.csv", again))
	<-again.Done()
}

func TestScheduler_RecorderFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	rec := &memRecorder{fail: errors.New("db down")}
	s := NewScheduler(WithLogger(zerolog.New(&buf)), WithRecorder(rec))

	task := NewTask(openPeople(t), &fakeWriter{})
	require.NoError(t, s.Schedule("job", task))
	<-task.Done()

	reports := s.Sweep(context.Background())
	require.Len(t, reports, 1)
	assert.Equal(t, StatusDone, reports[0].Status)
	assert.Contains(t, buf.String(), "failed to record task history")
	assert.Contains(t, buf.String(), "db down")
}

func TestScheduler_Wait(t *testing.T) {
	rec := &memRecorder{}
	s := NewScheduler(WithLogger(zerolog.Nop()), WithRecorder(rec), WithPollInterval(5*time.Millisecond))

	require.NoError(t, s.Schedule("quick", NewTask(openPeople(t), &fakeWriter{})))
	slow := &endlessReader{interval: 2 * time.Millisecond}
	require.NoError(t, s.Schedule("slow", NewTask(slow, &fakeWriter{}, WithBudget(40*time.Millisecond))))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))

	assert.Equal(t, 0, s.Len())
	statuses := map[string]string{}
	for _, e := range rec.Entries() {
		statuses[e.Label] = e.Status
	}
	assert.Equal(t, map[string]string{"quick": "done", "slow": "expired"}, statuses)
}

func TestScheduler_WaitHonoursContext(t *testing.T) {
	s := NewScheduler(WithLogger(zerolog.Nop()), WithPollInterval(5*time.Millisecond))
	r := &endlessReader{interval: time.Millisecond}
	require.NoError(t, s.Schedule("long", NewTask(r, &fakeWriter{}, WithBudget(500*time.Millisecond))))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_Run(t *testing.T) {
	var count int
	var mu sync.Mutex
	s := NewScheduler(
		WithLogger(zerolog.Nop()),
		WithPollInterval(5*time.Millisecond),
		WithReportHandler(func(Report) { mu.Lock(); count++; mu.Unlock() }),
	)
	task := NewTask(openPeople(t), &fakeWriter{})
	require.NoError(t, s.Schedule("job", task))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, count, 1)
	assert.Equal(t, 0, s.Len())
}
