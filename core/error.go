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

package core

import (
	"errors"
	"fmt"
)

// Package core defines the error types for the TabFilter library.

// ErrFinalized is returned by writers used after Finalize.
var ErrFinalized = errors.New("writer already finalized")

// ErrUnsupportedKind is returned for an unknown filter kind.
var ErrUnsupportedKind = errors.New("unsupported filter kind")

// ConfigError reports a filter rule whose target column is not part of the title.
// A reader that hits it stops producing rows.
type ConfigError struct {
	Column string
	Title  Title
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("filter column %q not found in title %v", e.Column, []string(e.Title))
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
