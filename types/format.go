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

package types

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Format identifies a family of tabular file formats.
type Format int

const (
	// FormatText is delimited text, one record per line.
	FormatText Format = iota
	// FormatSpreadsheet is an Office Open XML workbook.
	FormatSpreadsheet
	// FormatColumnar is Apache Parquet.
	FormatColumnar
	// FormatRecords is line-delimited JSON.
	FormatRecords
)

// DefaultExtension is appended to output names that have none.
const DefaultExtension = ".xlsx"

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatSpreadsheet:
		return "spreadsheet"
	case FormatColumnar:
		return "columnar"
	case FormatRecords:
		return "records"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// FormatFor picks the format from the file extension, case-insensitively.
// Unknown extensions are treated as delimited text.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		return FormatSpreadsheet
	case ".parquet":
		return FormatColumnar
	case ".jsonl", ".ndjson":
		return FormatRecords
	default:
		return FormatText
	}
}

// EnsureExtension normalizes a destination name. DefaultExtension is appended
// when path has no extension, and a legacy ".xls" name is renamed to ".xlsx"
// since only Office Open XML workbooks are written.
func EnsureExtension(path string) string {
	if path == "" {
		return path
	}
	ext := filepath.Ext(path)
	switch {
	case ext == "":
		return path + DefaultExtension
	case strings.EqualFold(ext, ".xls"):
		renamed := strings.TrimSuffix(path, ext) + DefaultExtension
		log.Warn().Str("destination", path).Str("renamed", renamed).Msg("legacy workbook destination written as xlsx")
		return renamed
	default:
		return path
	}
}
