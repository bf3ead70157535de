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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aaronlmathis/tabfilter/filter"
)

func newMatchCmd() *cobra.Command {
	var kind, pattern string

	cmd := &cobra.Command{
		Use:   "match VALUE...",
		Short: "Check values against a filter pattern",
		Long: `Evaluate a single filter pattern against each VALUE and print whether it
matches. Useful for trying out a pattern before putting it in a job.`,
		Example: `  tabfilter match --kind regex --pattern '^N' NY LA
  tabfilter match --kind expr --pattern 'int(X) > 25' 30 22`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := filter.ParseKind(kind)
			if err != nil {
				return err
			}
			for _, value := range args {
				ok, err := filter.Match(k, value, pattern)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", value, ok)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "list", "Filter kind (list, regex, expr)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Filter pattern")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}
