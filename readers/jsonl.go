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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aaronlmathis/tabfilter/core"
)

// JSONLReader reads line-delimited JSON. Each line holds one JSON object or array.
//
// A header line names the columns, either as an array of names or by the keys of
// an object. With a header, data objects are matched to the title by key whatever
// their key order. Otherwise cells are taken positionally, objects in key order,
// starting at the data column.
type JSONLReader struct {
	*tableReader
	file    *os.File
	scanner *bufio.Scanner
	dataCol int
	byKey   bool
}

// NewJSONLReader opens a JSON lines source positioned at its first data row.
func NewJSONLReader(path string, titlePos, dataPos core.Position) (*JSONLReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReaderError{Format: "jsonl", Op: "open", Err: err}
	}
	j := &JSONLReader{file: f, scanner: bufio.NewScanner(f), dataCol: dataPos.Column}
	j.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	consumed := 0
	var title core.Title
	if titlePos.HasHeader() {
		for consumed < titlePos.Row && j.scanner.Scan() {
			consumed++
		}
		if j.scanner.Scan() {
			consumed++
			keys, values, err := decodeLine(j.scanner.Bytes())
			if err != nil {
				f.Close()
				return nil, &ReaderError{Format: "jsonl", Op: "read_title", Err: err}
			}
			if keys != nil {
				title = core.Title(offset(keys, titlePos.Column))
			} else {
				names := make([]string, len(values))
				for i, v := range values {
					names[i] = core.CellString(v)
				}
				title = core.Title(offset(names, titlePos.Column))
			}
		}
		j.byKey = true
	} else {
		width, err := firstJSONWidth(path)
		if err != nil {
			f.Close()
			return nil, &ReaderError{Format: "jsonl", Op: "read_title", Err: err}
		}
		title = core.SynthesizeTitle(width)
	}

	for consumed < dataPos.Row && j.scanner.Scan() {
		consumed++
	}

	lines, err := countLines(path)
	if err != nil {
		f.Close()
		return nil, &ReaderError{Format: "jsonl", Op: "count", Err: err}
	}

	j.tableReader = newTableReader(title, int64(lines-dataPos.Row), j.readRaw)
	return j, nil
}

// Close implements core.TableReader.
func (j *JSONLReader) Close() error {
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	if err != nil {
		return &ReaderError{Format: "jsonl", Op: "close", Err: err}
	}
	return nil
}

func (j *JSONLReader) readRaw(ctx context.Context) (core.Row, error) {
	if j.file == nil || !j.scanner.Scan() {
		if j.file != nil {
			if err := j.scanner.Err(); err != nil {
				return nil, &ReaderError{Format: "jsonl", Op: "read_row", Err: err}
			}
		}
		return nil, io.EOF
	}

	line := j.scanner.Bytes()
	if len(bytes.TrimSpace(line)) == 0 {
		return core.Row{}, nil
	}
	keys, values, err := decodeLine(line)
	if err != nil {
		return nil, &ReaderError{Format: "jsonl", Op: "decode", Err: err}
	}

	if j.byKey && keys != nil {
		row := make(core.Row, len(j.title))
		for i, key := range keys {
			if idx, ok := j.index[key]; ok {
				row[idx] = values[i]
			}
		}
		return row, nil
	}
	if j.dataCol >= len(values) {
		return core.Row{}, nil
	}
	return core.Row(values[max(j.dataCol, 0):]), nil
}

// decodeLine decodes one object or array keeping document order. keys is nil
// for arrays.
func decodeLine(line []byte) (keys []string, values []interface{}, err error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}

	switch tok {
	case json.Delim('{'):
		keys = []string{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, nil, err
			}
			var v interface{}
			if err := dec.Decode(&v); err != nil {
				return nil, nil, err
			}
			keys = append(keys, kt.(string))
			values = append(values, v)
		}
	case json.Delim('['):
		for dec.More() {
			var v interface{}
			if err := dec.Decode(&v); err != nil {
				return nil, nil, err
			}
			values = append(values, v)
		}
	default:
		return nil, nil, fmt.Errorf("line is not a JSON object or array: %s", strings.TrimSpace(string(line)))
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// firstJSONWidth returns the number of cells on the first non-blank line of path.
func firstJSONWidth(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for s.Scan() {
		if len(bytes.TrimSpace(s.Bytes())) == 0 {
			continue
		}
		_, values, err := decodeLine(s.Bytes())
		if err != nil {
			return 0, err
		}
		return len(values), nil
	}
	if err := s.Err(); err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	return 0, nil
}
