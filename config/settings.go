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
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment variables read by LoadSettings.
const (
	EnvBudget     = "TABFILTER_BUDGET"
	EnvPoll       = "TABFILTER_POLL"
	EnvHistoryDSN = "TABFILTER_HISTORY_DSN"
	EnvLogLevel   = "TABFILTER_LOG_LEVEL"
	EnvLogFormat  = "TABFILTER_LOG_FORMAT"
)

// Settings are process wide defaults. A job file budget overrides Budget.
type Settings struct {
	Budget       time.Duration
	PollInterval time.Duration
	Separator    string
	HistoryDSN   string
	LogLevel     string
	LogFormat    string
}

// DefaultSettings returns the built in defaults.
func DefaultSettings() Settings {
	return Settings{
		Budget:       120 * time.Second,
		PollInterval: time.Second,
		Separator:    ",",
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// LoadSettings returns the defaults overridden by the environment.
func LoadSettings() (Settings, error) {
	return settingsFrom(os.LookupEnv)
}

func settingsFrom(lookup func(string) (string, bool)) (Settings, error) {
	s := DefaultSettings()

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{EnvBudget, &s.Budget},
		{EnvPoll, &s.PollInterval},
	}
	for _, d := range durations {
		v, ok := lookup(d.env)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return s, fmt.Errorf("%s: %w", d.env, err)
		}
		if parsed <= 0 {
			return s, fmt.Errorf("%s: must be positive, got %s", d.env, parsed)
		}
		*d.dst = parsed
	}

	if v, ok := lookup(EnvHistoryDSN); ok {
		s.HistoryDSN = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		s.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		s.LogFormat = v
	}
	return s, nil
}
