package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// DefaultDelimiter is used when no delimiter hint is given.
const DefaultDelimiter = ";"

// placeholderHeader replaces blank header cells.
const placeholderHeader = "Coluna"

// Decode parses an uploaded tabular file into headers and rows.
// The format is chosen by the filename extension. delimiter only applies to
// delimited text; its first rune is used and it defaults to ";".
func Decode(data []byte, filename, delimiter string) (*Table, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "csv", "txt":
		return decodeDelimited(data, delimiter)
	case "xlsx", "xlsm", "xls":
		return decodeSpreadsheet(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
}

func decodeDelimited(data []byte, delimiter string) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: file is not valid UTF-8", ErrDecode)
	}

	comma, _ := utf8.DecodeRuneInString(delimiter)
	if delimiter == "" || comma == utf8.RuneError {
		comma = ';'
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &Table{Rows: []Row{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		if h == "" {
			h = placeholderHeader
		}
		headers[i] = h
	}

	rows := []Row{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}

		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

func decodeSpreadsheet(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{Rows: []Row{}}, nil
	}

	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(grid) == 0 {
		return &Table{Rows: []Row{}}, nil
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		if h == "" {
			h = placeholderHeader
		}
		headers[i] = h
	}

	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		n := min(len(headers), len(cells))
		row := make(Row, n)
		for i := 0; i < n; i++ {
			row[headers[i]] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}
