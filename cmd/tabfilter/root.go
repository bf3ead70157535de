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
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aaronlmathis/tabfilter/config"
	"github.com/aaronlmathis/tabfilter/logging"
)

// app carries what every subcommand needs once the root command has run.
type app struct {
	settings  config.Settings
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "tabfilter",
		Short: "Filter rows of tabular files into new files",
		Long: `tabfilter copies the rows of a delimited text file, a workbook or a Parquet
file that pass a set of per-column filter rules into a new file, keeping the
header and optionally only some of the columns.

Sources and destinations may be local paths or s3://bucket/key locations.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				settings.LogLevel = a.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				settings.LogFormat = a.logFormat
			}
			if err := logging.Setup(settings.LogLevel, settings.LogFormat, cmd.ErrOrStderr()); err != nil {
				return err
			}
			a.settings = settings
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", logging.FormatConsole, "Log format (console or json)")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newMatchCmd())
	return rootCmd
}
