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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogRecorder writes entries to a zerolog logger.
type LogRecorder struct {
	logger zerolog.Logger
}

// NewLogRecorder records to the global logger.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{logger: log.Logger.With().Str("component", "history").Logger()}
}

// NewLogRecorderWith records to the given logger.
func NewLogRecorderWith(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(ctx context.Context, entry Entry) error {
	var ev *zerolog.Event
	if entry.Fault != "" {
		ev = r.logger.Warn().Str("fault", entry.Fault)
	} else {
		ev = r.logger.Info()
	}
	ev.Str("label", entry.Label).
		Str("source", entry.Source).
		Str("destination", entry.Destination).
		Str("status", entry.Status).
		Int64("rows_written", entry.RowsWritten).
		Dur("duration", entry.Duration()).
		Msg("task finished")
	return nil
}

func (r *LogRecorder) Close(ctx context.Context) error {
	return nil
}
