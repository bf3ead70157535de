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

package readers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/aaronlmathis/tabfilter/core"
)

// CSVReaderOptions configures the delimited-text reader.
type CSVReaderOptions struct {
	Separator string
}

// ReaderOptionCSV allows functional customization of CSVReader.
type ReaderOptionCSV func(*CSVReaderOptions)

// WithCSVSeparator sets the field separator. The default is a comma.
func WithCSVSeparator(sep string) ReaderOptionCSV {
	return func(o *CSVReaderOptions) {
		if sep != "" {
			o.Separator = sep
		}
	}
}

// CSVReader reads delimited text line by line. Fields are split on the separator
// without any quoting rules; each line is trimmed of surrounding whitespace first.
type CSVReader struct {
	*tableReader
	path    string
	file    *os.File
	buf     *bufio.Reader
	dataPos core.Position
	opts    CSVReaderOptions
}

// NewCSVReader opens a delimited-text source positioned at its first data row.
//
// A source that cannot be opened does not fail construction: the reader is
// degraded, reports zero rows and yields io.EOF immediately.
func NewCSVReader(path string, titlePos, dataPos core.Position, options ...ReaderOptionCSV) (*CSVReader, error) {
	opts := CSVReaderOptions{Separator: ","}
	for _, opt := range options {
		opt(&opts)
	}

	c := &CSVReader{path: path, dataPos: dataPos, opts: opts}

	f, err := os.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("csv source not readable, reader degraded to empty")
		var title core.Title
		if !titlePos.HasHeader() {
			title = core.SynthesizeTitle(0)
		}
		c.tableReader = newTableReader(title, 0, nil)
		return c, nil
	}
	c.file = f
	c.buf = bufio.NewReader(f)

	consumed := 0
	var title core.Title
	if titlePos.HasHeader() {
		for consumed < titlePos.Row {
			if _, err := c.readLine(); err != nil {
				break
			}
			consumed++
		}
		line, err := c.readLine()
		switch {
		case errors.Is(err, io.EOF):
			// Title row past the end of the source: no columns.
		case err != nil:
			f.Close()
			return nil, &ReaderError{Format: "csv", Op: "read_title", Err: err}
		default:
			title = core.Title(offset(c.split(line), titlePos.Column))
		}
		consumed++
	} else {
		width, err := firstLineWidth(path, opts.Separator)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("csv source width unknown")
		}
		title = core.SynthesizeTitle(width)
	}

	for consumed < dataPos.Row {
		if _, err := c.readLine(); err != nil {
			break
		}
		consumed++
	}

	lines, err := countLines(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("csv row count unavailable")
	}

	c.tableReader = newTableReader(title, int64(lines-dataPos.Row), c.readRaw)
	return c, nil
}

// Close implements core.TableReader.
func (c *CSVReader) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	c.buf = nil
	if err != nil {
		return &ReaderError{Format: "csv", Op: "close", Err: err}
	}
	return nil
}

func (c *CSVReader) readRaw(ctx context.Context) (core.Row, error) {
	if c.buf == nil {
		return nil, io.EOF
	}
	line, err := c.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &ReaderError{Format: "csv", Op: "read_row", Err: err}
	}

	fields := offset(c.split(line), c.dataPos.Column)
	row := make(core.Row, len(fields))
	for i, f := range fields {
		row[i] = f
	}
	return row, nil
}

// readLine returns the next line without its terminator. io.EOF is returned only
// when no bytes remain.
func (c *CSVReader) readLine() (string, error) {
	line, err := c.buf.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

func (c *CSVReader) split(line string) []string {
	return splitLine(line, c.opts.Separator)
}

// splitLine trims the line and splits it on sep. A whitespace separator keeps
// leading and trailing separators so empty edge fields survive.
func splitLine(line, sep string) []string {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(sep) != "" {
		line = strings.TrimSpace(line)
	}
	return strings.Split(line, sep)
}

func offset(fields []string, col int) []string {
	if col <= 0 {
		return fields
	}
	if col >= len(fields) {
		return nil
	}
	return fields[col:]
}

// firstLineWidth returns the number of fields on the first line of path.
func firstLineWidth(path, sep string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if line == "" {
		return 0, nil
	}
	return len(splitLine(line, sep)), nil
}

// countLines counts lines the way a line iterator would: a final line without a
// trailing newline still counts.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		lines   int
		pending bool
		chunk   = make([]byte, 64*1024)
	)
	for {
		n, err := f.Read(chunk)
		for _, b := range chunk[:n] {
			if b == '\n' {
				lines++
				pending = false
			} else {
				pending = true
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return lines, err
		}
	}
	if pending {
		lines++
	}
	return lines, nil
}
