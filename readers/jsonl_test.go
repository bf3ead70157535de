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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/tabfilter/core"
	"github.com/aaronlmathis/tabfilter/filter"
)

const peopleJSONL = `["Name","Age","City"]
{"Name":"Alice","Age":30,"City":"NY"}
{"City":"LA","Name":"Bob","Age":40}
{"Name":"Cy","Age":22}
`

func TestJSONLReader_HeaderArray(t *testing.T) {
	path := writeTemp(t, "people.jsonl", peopleJSONL)
	r, err := NewJSONLReader(path, core.Position{Row: 0}, core.Position{Row: 1})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, core.Title{"Name", "Age", "City"}, r.Title())
	assert.Equal(t, int64(3), r.Total())

	rows := drain(t, r)
	require.Len(t, rows, 3)
	assert.Equal(t, core.Row{"Alice", 30.0, "NY"}, rows[0])
	assert.Equal(t, core.Row{"Bob", 40.0, "LA"}, rows[1])
	assert.Equal(t, core.Row{"Cy", 22.0, nil}, rows[2])
	assert.Equal(t, 1.0, r.Progress())
}

func TestJSONLReader_HeaderObject(t *testing.T) {
	doc := "{\"id\":1,\"name\":\"a\"}\n{\"id\":2,\"name\":\"b\"}\n"
	path := writeTemp(t, "rows.ndjson", doc)
	r, err := NewJSONLReader(path, core.Position{Row: 0}, core.Position{Row: 1})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, core.Title{"id", "name"}, r.Title())
	assert.Equal(t, []core.Row{{2.0, "b"}}, drain(t, r))
}

func TestJSONLReader_NoHeader(t *testing.T) {
	doc := "[\"x\",1,true]\n[\"y\",2]\n"
	path := writeTemp(t, "rows.jsonl", doc)
	r, err := NewJSONLReader(path, core.Position{Row: core.NoHeader}, core.Position{Row: 0, Column: 1})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, core.Title{"1", "2", "3"}, r.Title())
	assert.Equal(t, []core.Row{{1.0, true, nil}, {2.0, nil, nil}}, drain(t, r))
}

func TestJSONLReader_Filters(t *testing.T) {
	path := writeTemp(t, "people.jsonl", peopleJSONL)
	r, err := NewJSONLReader(path, core.Position{Row: 0}, core.Position{Row: 1})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.AddRule(filter.Expression, "X > 25", "Age"))
	assert.Equal(t, []string{"Alice", "Bob"}, names(drain(t, r)))
}

func TestJSONLReader_Errors(t *testing.T) {
	_, err := NewJSONLReader("/does/not/exist.jsonl", core.Position{}, core.Position{Row: 1})
	var readerErr *ReaderError
	require.ErrorAs(t, err, &readerErr)
	assert.Equal(t, "open", readerErr.Op)

	path := writeTemp(t, "bad.jsonl", "[\"a\"]\nnot json\n")
	r, err := NewJSONLReader(path, core.Position{Row: 0}, core.Position{Row: 1})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadRow(context.Background())
	require.ErrorAs(t, err, &readerErr)
	assert.Equal(t, "decode", readerErr.Op)
}
