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

package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// IsRemote reports whether location is handled by a Stager rather than the
// local filesystem.
func IsRemote(location string) bool {
	return IsS3(location) || IsHTTP(location)
}

// stage copies src into a fresh temporary directory as name. The returned
// cleanup removes the directory.
func stage(uri, name string, src io.Reader) (string, func(), error) {
	if name == "" || name == "." || name == "/" || strings.ContainsAny(name, `/\`) {
		name = "download"
	}

	dir, err := os.MkdirTemp("", "tabfilter-*")
	if err != nil {
		return "", nil, &StorageError{Op: "stage", URI: uri, Err: err}
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to remove staging directory")
		}
	}

	local := filepath.Join(dir, name)
	f, err := os.Create(local)
	if err != nil {
		cleanup()
		return "", nil, &StorageError{Op: "stage", URI: uri, Err: err}
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", nil, &StorageError{Op: "download", URI: uri, Err: err}
	}

	log.Debug().Str("uri", uri).Str("local", local).Int64("bytes", n).Msg("staged remote source")
	return local, cleanup, nil
}
