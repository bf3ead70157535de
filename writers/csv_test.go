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

package writers

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/tabfilter/core"
)

// Mock destination for writer tests
type mockWriteCloser struct {
	*strings.Builder
	closed    bool
	failWrite bool
	failClose bool
	mu        sync.Mutex
}

func (m *mockWriteCloser) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return 0, io.ErrUnexpectedEOF
	}
	return m.Builder.Write(p)
}

func (m *mockWriteCloser) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.failClose {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (m *mockWriteCloser) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Builder.String()
}

func (m *mockWriteCloser) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func newMockWriteCloser() *mockWriteCloser {
	return &mockWriteCloser{Builder: &strings.Builder{}}
}

var people = core.Title{"Name", "Age", "City"}

func TestProjection(t *testing.T) {
	tests := []struct {
		name       string
		desired    []string
		wantHeader core.Title
		row        core.Row
		wantRow    core.Row
	}{
		{"none", nil, people, core.Row{"Alice", "30", "NY"}, core.Row{"Alice", "30", "NY"}},
		{"reorder and drop", []string{"City", "Name"}, core.Title{"City", "Name"}, core.Row{"Alice", "30", "NY"}, core.Row{"NY", "Alice"}},
		{"blank and unknown names dropped", []string{"", "Age", "Country", "  "}, core.Title{"Age"}, core.Row{"Alice", "30", "NY"}, core.Row{"30"}},
		{"nothing usable", []string{"Country"}, people, core.Row{"Alice", "30", "NY"}, core.Row{"Alice", "30", "NY"}},
		{"short row", []string{"City", "Name"}, core.Title{"City", "Name"}, core.Row{"Alice"}, core.Row{nil, "Alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProjection(people, tt.desired)
			assert.Equal(t, tt.wantHeader, p.Header())
			assert.Equal(t, tt.wantRow, p.Apply(tt.row))
		})
	}
}

func TestCSVWriter_BasicFunctionality(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, people, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, writer.Write(ctx, core.Row{"Alice", "30", "NY"}))
	require.NoError(t, writer.Write(ctx, core.Row{"Bob", 40.0, nil}))
	assert.Equal(t, int64(2), writer.RowsWritten())

	require.NoError(t, writer.Finalize())
	assert.True(t, mock.IsClosed())
	assert.Equal(t, "Name,Age,City\nAlice,30,NY\nBob,40,\n", mock.String())
}

func TestCSVWriter_HeaderWrittenAtConstruction(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, people, nil, WithBufferSize(1))
	require.NoError(t, err)
	defer writer.Finalize()

	assert.Equal(t, int64(0), writer.RowsWritten())
	assert.Equal(t, people, writer.Header())
	assert.True(t, strings.HasPrefix(mock.String(), "Name,Age,City"))
}

func TestCSVWriter_Projection(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, people, []string{"City", "Name"})
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), core.Row{"Alice", "30", "NY"}))
	require.NoError(t, writer.Finalize())
	assert.Equal(t, "City,Name\nNY,Alice\n", mock.String())
}

func TestCSVWriter_CustomSeparator(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, core.Title{"a", "b"}, nil, WithSeparator(";"))
	require.NoError(t, err)

	// Embedded separators are not escaped.
	require.NoError(t, writer.Write(context.Background(), core.Row{"x;y", "z"}))
	require.NoError(t, writer.Finalize())
	assert.Equal(t, "a;b\nx;y;z\n", mock.String())
}

func TestCSVWriter_ErrorHandling(t *testing.T) {
	t.Run("write after finalize", func(t *testing.T) {
		writer, err := NewCSVWriter(newMockWriteCloser(), people, nil)
		require.NoError(t, err)
		require.NoError(t, writer.Finalize())

		err = writer.Write(context.Background(), core.Row{"Alice"})
		assert.ErrorIs(t, err, core.ErrFinalized)
	})

	t.Run("double finalize", func(t *testing.T) {
		writer, err := NewCSVWriter(newMockWriteCloser(), people, nil)
		require.NoError(t, err)
		require.NoError(t, writer.Finalize())
		assert.ErrorIs(t, writer.Finalize(), core.ErrFinalized)
	})

	t.Run("flush failure", func(t *testing.T) {
		mock := newMockWriteCloser()
		mock.failWrite = true
		writer, err := NewCSVWriter(mock, people, nil)
		require.NoError(t, err)
		require.NoError(t, writer.Write(context.Background(), core.Row{"Alice", "30", "NY"}))

		err = writer.Finalize()
		var writerErr *WriterError
		require.ErrorAs(t, err, &writerErr)
		assert.Equal(t, "flush", writerErr.Op)
		assert.True(t, mock.IsClosed())
	})

	t.Run("close failure", func(t *testing.T) {
		mock := newMockWriteCloser()
		mock.failClose = true
		writer, err := NewCSVWriter(mock, people, nil)
		require.NoError(t, err)
		assert.True(t, errors.Is(writer.Finalize(), io.ErrUnexpectedEOF))
	})

	t.Run("cancelled context", func(t *testing.T) {
		writer, err := NewCSVWriter(newMockWriteCloser(), people, nil)
		require.NoError(t, err)
		defer writer.Finalize()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, writer.Write(ctx, core.Row{"Alice"}), context.Canceled)
		assert.Equal(t, int64(0), writer.RowsWritten())
	})
}

func TestCSVWriter_ConcurrentSafety(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, core.Title{"n"}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = writer.Write(context.Background(), core.Row{i})
			}
		}()
	}
	wg.Wait()

	require.NoError(t, writer.Finalize())
	assert.Equal(t, int64(400), writer.RowsWritten())
	assert.Equal(t, 401, strings.Count(mock.String(), "\n"))
}
