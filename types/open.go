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
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/aaronlmathis/tabfilter/core"
	"github.com/aaronlmathis/tabfilter/readers"
	"github.com/aaronlmathis/tabfilter/storage"
	"github.com/aaronlmathis/tabfilter/writers"
)

// Options configures reader and writer construction.
type Options struct {
	Separator string
	Stager    storage.Stager
	HTTP      storage.Stager
}

// Option is a functional option for OpenReader and CreateWriter.
type Option func(*Options)

// WithSeparator sets the field separator for delimited text.
func WithSeparator(sep string) Option {
	return func(o *Options) {
		o.Separator = sep
	}
}

// WithStager sets the stager used for s3:// locations. Without one, a stager
// is built from the default AWS configuration on first use.
func WithStager(s storage.Stager) Option {
	return func(o *Options) {
		o.Stager = s
	}
}

// WithHTTPStager sets the stager used for http:// and https:// locations.
func WithHTTPStager(s storage.Stager) Option {
	return func(o *Options) {
		o.HTTP = s
	}
}

func buildOptions(opts []Option) Options {
	o := Options{Separator: ","}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *Options) stager(ctx context.Context, location string) (storage.Stager, error) {
	if storage.IsHTTP(location) {
		if o.HTTP == nil {
			o.HTTP = storage.NewHTTPStager()
		}
		return o.HTTP, nil
	}
	if o.Stager != nil {
		return o.Stager, nil
	}
	s, err := storage.NewS3Stager(ctx)
	if err != nil {
		return nil, err
	}
	o.Stager = s
	return s, nil
}

// OpenReader builds the reader variant matching the extension of location.
// Remote locations are downloaded first and removed when the reader is closed.
func OpenReader(ctx context.Context, location string, title, data core.Position, opts ...Option) (core.TableReader, error) {
	o := buildOptions(opts)
	if !storage.IsRemote(location) {
		return openLocal(location, title, data, o)
	}

	stager, err := o.stager(ctx, location)
	if err != nil {
		return nil, err
	}
	local, cleanup, err := stager.Download(ctx, location)
	if err != nil {
		return nil, err
	}
	r, err := openLocal(local, title, data, o)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &stagedReader{TableReader: r, cleanup: cleanup}, nil
}

func openLocal(path string, title, data core.Position, o Options) (core.TableReader, error) {
	var (
		r   core.TableReader
		err error
	)
	switch FormatFor(path) {
	case FormatSpreadsheet:
		r, err = readers.NewXLSXReader(path, title, data)
	case FormatColumnar:
		r, err = readers.NewParquetReader(path, title, data)
	case FormatRecords:
		r, err = readers.NewJSONLReader(path, title, data)
	default:
		r, err = readers.NewCSVReader(path, title, data, readers.WithCSVSeparator(o.Separator))
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateWriter builds the writer variant matching the extension of location,
// creating parent directories as needed. The header is written before it returns.
// Remote locations are written to a local file and uploaded on Finalize.
func CreateWriter(ctx context.Context, location string, title core.Title, desired []string, opts ...Option) (core.TableWriter, error) {
	o := buildOptions(opts)
	if !storage.IsRemote(location) {
		return createLocal(location, title, desired, o)
	}

	stager, err := o.stager(ctx, location)
	if err != nil {
		return nil, err
	}
	if storage.IsS3(location) {
		if _, _, err := storage.ParseURI(location); err != nil {
			return nil, &storage.StorageError{Op: "parse", URI: location, Err: err}
		}
	}
	dir, err := os.MkdirTemp("", "tabfilter-out-*")
	if err != nil {
		return nil, err
	}
	local := filepath.Join(dir, remoteBase(location))
	w, err := createLocal(local, title, desired, o)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &stagedWriter{
		TableWriter: w,
		local:       local,
		remote:      location,
		stager:      stager,
		cleanup:     func() { os.RemoveAll(dir) },
	}, nil
}

func createLocal(path string, title core.Title, desired []string, o Options) (core.TableWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	var w core.TableWriter
	switch FormatFor(path) {
	case FormatSpreadsheet:
		w, err = writers.NewXLSXWriter(f, title, desired)
	case FormatColumnar:
		w, err = writers.NewParquetWriter(f, title, desired)
	case FormatRecords:
		w, err = writers.NewJSONLWriter(f, title, desired)
	default:
		w, err = writers.NewCSVWriter(f, title, desired, writers.WithSeparator(o.Separator))
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// remoteBase is the last path segment of location, without any query string.
func remoteBase(location string) string {
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(location)
}

// stagedReader removes the local copy of a remote source on Close.
type stagedReader struct {
	core.TableReader
	once    sync.Once
	cleanup func()
}

func (r *stagedReader) Close() error {
	err := r.TableReader.Close()
	r.once.Do(r.cleanup)
	return err
}

// stagedWriter uploads the finalized local file to its remote location.
type stagedWriter struct {
	core.TableWriter
	local   string
	remote  string
	stager  storage.Stager
	cleanup func()
}

func (w *stagedWriter) Finalize() error {
	if err := w.TableWriter.Finalize(); err != nil {
		return err
	}
	defer w.cleanup()
	return w.stager.Upload(context.Background(), w.local, w.remote)
}
