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
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/aaronlmathis/tabfilter/core"
)

// XLSXReader reads the first worksheet of a workbook, addressing cells by
// (row, column) directly. Cell values keep their native type: numbers come back as
// float64, booleans as bool, dates as time.Time and everything else as string.
// A number is a date when its cell carries a date or time number format.
type XLSXReader struct {
	*tableReader
	book     *excelize.File
	sheet    string
	maxRow   int
	maxCol   int
	cur      int // 1-based row of the next data row
	dataCol  int // 1-based column of the first data column
	date1904 bool
	dateFmt  map[int]bool // style index -> number format is a date
}

// NewXLSXReader opens a workbook positioned at its first data row. Unlike the
// delimited-text reader, a workbook that cannot be opened fails construction.
func NewXLSXReader(path string, titlePos, dataPos core.Position) (*XLSXReader, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ReaderError{Format: "xlsx", Op: "open", Err: err}
	}
	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		book.Close()
		return nil, &ReaderError{Format: "xlsx", Op: "open", Err: fmt.Errorf("workbook %s has no sheets", path)}
	}

	x := &XLSXReader{
		book:    book,
		sheet:   sheets[0],
		cur:     dataPos.Row + 1,
		dataCol: dataPos.Column + 1,
		dateFmt: make(map[int]bool),
	}
	if props, err := book.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		x.date1904 = *props.Date1904
	}
	if err := x.measure(); err != nil {
		book.Close()
		return nil, &ReaderError{Format: "xlsx", Op: "measure", Err: err}
	}

	var title core.Title
	if !titlePos.HasHeader() {
		title = core.SynthesizeTitle(x.maxCol)
	} else {
		for col := titlePos.Column + 1; col <= x.maxCol; col++ {
			v, err := x.cell(titlePos.Row+1, col)
			if err != nil {
				book.Close()
				return nil, &ReaderError{Format: "xlsx", Op: "read_title", Err: err}
			}
			title = append(title, core.CellString(v))
		}
	}

	x.tableReader = newTableReader(title, int64(x.maxRow-dataPos.Row), x.readRaw)
	return x, nil
}

// Close implements core.TableReader.
func (x *XLSXReader) Close() error {
	if x.book == nil {
		return nil
	}
	err := x.book.Close()
	x.book = nil
	if err != nil {
		return &ReaderError{Format: "xlsx", Op: "close", Err: err}
	}
	return nil
}

// measure walks the sheet once to find its last row and widest row.
func (x *XLSXReader) measure() error {
	rows, err := x.book.Rows(x.sheet)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		x.maxRow++
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return err
		}
		if len(cols) > x.maxCol {
			x.maxCol = len(cols)
		}
	}
	return rows.Error()
}

func (x *XLSXReader) readRaw(ctx context.Context) (core.Row, error) {
	if x.book == nil || x.cur > x.maxRow {
		return nil, io.EOF
	}
	row := make(core.Row, 0, x.maxCol-x.dataCol+1)
	for col := x.dataCol; col <= x.maxCol; col++ {
		v, err := x.cell(x.cur, col)
		if err != nil {
			return nil, &ReaderError{Format: "xlsx", Op: "read_row", Err: err}
		}
		row = append(row, v)
	}
	x.cur++
	return row, nil
}

// cell returns the typed value at the 1-based (row, col) coordinate.
func (x *XLSXReader) cell(row, col int) (interface{}, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	raw, err := x.book.GetCellValue(x.sheet, name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	typ, err := x.book.GetCellType(x.sheet, name)
	if err != nil {
		return nil, err
	}
	v := typedCell(typ, raw)
	if serial, ok := v.(float64); ok {
		isDate, err := x.isDateCell(name)
		if err != nil {
			return nil, err
		}
		if isDate {
			if t, err := excelize.ExcelDateToTime(serial, x.date1904); err == nil {
				return t, nil
			}
		}
	}
	return v, nil
}

// isDateCell reports whether the number format of the named cell renders a date
// or a time. Results are cached per style index.
func (x *XLSXReader) isDateCell(name string) (bool, error) {
	idx, err := x.book.GetCellStyle(x.sheet, name)
	if err != nil {
		return false, err
	}
	if idx == 0 {
		return false, nil
	}
	if isDate, ok := x.dateFmt[idx]; ok {
		return isDate, nil
	}
	style, err := x.book.GetStyle(idx)
	if err != nil {
		return false, err
	}
	isDate := isDateNumFmt(style.NumFmt)
	if style.CustomNumFmt != nil {
		isDate = isDateFormatCode(*style.CustomNumFmt)
	}
	x.dateFmt[idx] = isDate
	return isDate, nil
}

// isDateNumFmt reports whether a built-in number format ID is a date or time
// format, including the language specific ones.
func isDateNumFmt(id int) bool {
	switch {
	case 14 <= id && id <= 22:
		return true
	case 27 <= id && id <= 36:
		return true
	case 45 <= id && id <= 47:
		return true
	case 50 <= id && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom number format code contains date or
// time tokens outside of quoted literals, escapes and bracketed modifiers.
func isDateFormatCode(code string) bool {
	if strings.EqualFold(code, "general") {
		return false
	}
	var plain strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			// Elapsed time such as [h] or [mm] counts; colours and locales do not.
			if c == 'h' || c == 'H' || c == 's' || c == 'S' {
				plain.WriteByte(c)
			}
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		default:
			plain.WriteByte(c)
		}
	}
	lower := strings.ToLower(plain.String())
	if strings.ContainsAny(lower, "ydhs") {
		return true
	}
	return strings.Contains(lower, "m") && !strings.ContainsAny(lower, "0#?")
}

// typedCell converts a raw cell string to the Go type matching the cell type.
func typedCell(typ excelize.CellType, raw string) interface{} {
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || raw == "TRUE" || raw == "true"
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
		return raw
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeError:
		return raw
	default:
		// Numeric cells usually carry no explicit type.
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return raw
	}
}
