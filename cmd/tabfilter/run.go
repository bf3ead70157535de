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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aaronlmathis/tabfilter"
	"github.com/aaronlmathis/tabfilter/config"
	"github.com/aaronlmathis/tabfilter/history"
	"github.com/aaronlmathis/tabfilter/logging"
	"github.com/aaronlmathis/tabfilter/types"
)

type runOptions struct {
	jobFiles  []string
	source    string
	dest      string
	titleRow  int
	titleCol  int
	dataRow   int
	dataCol   int
	filters   []string
	columns   []string
	separator string
	budget    time.Duration
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one or more filter jobs",
		Long: `Run filter jobs and report their progress until all of them finish.

Jobs come either from YAML job files (--job, repeatable) or from flags
describing a single job. Positions are 1-based; a title row of 0 means the
source has no header and columns are named 1, 2, ...`,
		Example: `  tabfilter run --src people.csv --dst adults.xlsx --filter 'expr:Age:X > 25'
  tabfilter run --src s3://bucket/in.parquet --dst out.csv --columns City,Name \
      --filter 'regex:City:^N' --filter $'list:Age:30\n40'
  tabfilter run --job nightly.yaml --job weekly.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := o.jobs()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runJobs(ctx, a.settings, jobs)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&o.jobFiles, "job", nil, "YAML job file (repeatable)")
	f.StringVar(&o.source, "src", "", "Source file or s3:// location")
	f.StringVar(&o.dest, "dst", "", "Destination file or s3:// location (.xlsx is added when there is no extension)")
	f.IntVar(&o.titleRow, "title-row", 1, "Row of the header, 0 for none")
	f.IntVar(&o.titleCol, "title-col", 1, "Column where the header starts")
	f.IntVar(&o.dataRow, "data-row", 0, "Row where the data starts (default: the row after the header)")
	f.IntVar(&o.dataCol, "data-col", 0, "Column where the data starts (default: the header column)")
	f.StringArrayVar(&o.filters, "filter", nil, "Filter rule as kind:column:pattern (repeatable)")
	f.StringSliceVar(&o.columns, "columns", nil, "Output columns in order (default: all)")
	f.StringVar(&o.separator, "separator", "", "Field separator for delimited text (default from settings)")
	f.DurationVar(&o.budget, "budget", 0, "Time budget per job (default from settings)")
	cmd.MarkFlagsMutuallyExclusive("job", "src")
	cmd.MarkFlagsMutuallyExclusive("job", "dst")

	return cmd
}

// jobs returns the job files, or a single job built from the flags.
func (o *runOptions) jobs() ([]*config.Job, error) {
	if len(o.jobFiles) > 0 {
		jobs := make([]*config.Job, 0, len(o.jobFiles))
		for _, path := range o.jobFiles {
			job, err := config.LoadJob(path)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			jobs = append(jobs, job)
		}
		return jobs, nil
	}

	job := &config.Job{
		Source:      o.source,
		Destination: o.dest,
		Separator:   o.separator,
		Title:       &config.Cell{Row: o.titleRow, Column: o.titleCol},
		Columns:     config.ParseColumns(o.columns),
		Budget:      o.budget,
	}
	if o.dataRow > 0 || o.dataCol > 0 {
		job.Data = &config.Cell{Row: o.dataRow, Column: o.dataCol}
		if job.Data.Row == 0 {
			job.Data.Row = o.titleRow + 1
		}
		if job.Data.Column == 0 {
			job.Data.Column = max(o.titleCol, 1)
		}
	}
	for _, spec := range o.filters {
		fs, err := parseFilterFlag(spec)
		if err != nil {
			return nil, err
		}
		job.Filters = append(job.Filters, fs)
	}

	job.ApplyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return []*config.Job{job}, nil
}

// parseFilterFlag splits "kind:column:pattern". The pattern may contain colons.
func parseFilterFlag(spec string) (config.FilterSpec, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) != 3 {
		return config.FilterSpec{}, fmt.Errorf("filter %q: want kind:column:pattern", spec)
	}
	return config.FilterSpec{Kind: parts[0], Column: parts[1], Pattern: parts[2]}, nil
}

// runJobs schedules every job, waits for all of them and fails when any job
// could not start or faulted.
func runJobs(ctx context.Context, settings config.Settings, jobs []*config.Job) error {
	defer logging.LogDuration(time.Now(), "run jobs")

	recorder, err := history.Open(ctx, settings.HistoryDSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := recorder.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to close history recorder")
		}
	}()

	var faulted atomic.Int32
	sched := tabfilter.NewScheduler(
		tabfilter.WithPollInterval(settings.PollInterval),
		tabfilter.WithRecorder(recorder),
		tabfilter.WithReportHandler(func(r tabfilter.Report) {
			if r.Status == tabfilter.StatusFaulted {
				faulted.Add(1)
			}
		}),
	)

	var errs []error
	for _, job := range jobs {
		if err := startJob(ctx, sched, settings, job); err != nil {
			log.Error().Err(err).Str("source", job.Source).Msg("job not started")
			errs = append(errs, err)
		}
	}

	if err := sched.Wait(ctx); err != nil {
		errs = append(errs, err)
	}
	if n := faulted.Load(); n > 0 {
		errs = append(errs, fmt.Errorf("%d job(s) failed", n))
	}
	return errors.Join(errs...)
}

func startJob(ctx context.Context, sched *tabfilter.Scheduler, settings config.Settings, job *config.Job) error {
	separator := job.Separator
	if separator == "" {
		separator = settings.Separator
	}
	opts := []types.Option{types.WithSeparator(separator)}

	rules, err := job.Rules()
	if err != nil {
		return err
	}

	title, data := job.Positions()
	reader, err := types.OpenReader(ctx, job.Source, title, data, opts...)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if err := reader.AddFilter(rule); err != nil {
			reader.Close()
			return err
		}
	}

	writer, err := types.CreateWriter(ctx, job.Destination, reader.Title(), job.Columns, opts...)
	if err != nil {
		reader.Close()
		return err
	}

	budget := settings.Budget
	if job.Budget > 0 {
		budget = job.Budget
	}
	task := tabfilter.NewTask(reader, writer,
		tabfilter.WithBudget(budget),
		tabfilter.WithLocations(job.Source, job.Destination),
	)
	return sched.Schedule("", task)
}
