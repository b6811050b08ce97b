// AngelaMos | 2026
// parser.go

package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheets = errors.New("workbook has no sheets")
	ErrNoRows   = errors.New("sheet has no data rows")
)

const emptyHeader = "__EMPTY"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a CSV table. The first record is the header row.
func ParseCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	grid, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	rows := fromGrid(grid, nil)
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

// ParseXLSX reads the first sheet of an Office Open XML workbook.
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	//nolint:errcheck // read-only workbook, nothing to flush
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	name := sheets[0]

	grid, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	// boolean cells come back raw as 0/1; ask the workbook for those
	typed := func(rowIdx, colIdx int, raw string) (Value, bool) {
		if raw != "0" && raw != "1" {
			return Value{}, false
		}
		axis, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
		if err != nil {
			return Value{}, false
		}
		ct, err := f.GetCellType(name, axis)
		if err != nil || ct != excelize.CellTypeBool {
			return Value{}, false
		}
		return Bool(raw == "1"), true
	}

	rows := fromGrid(grid, typed)
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

type cellTyper func(rowIdx, colIdx int, raw string) (Value, bool)

// fromGrid turns a header row plus data rows into records. Blank cells are
// left out of a record and fully blank rows are skipped.
func fromGrid(grid [][]string, typer cellTyper) []Row {
	headerIdx := -1
	width := 0
	for i, rec := range grid {
		if headerIdx < 0 && !isBlank(rec) {
			headerIdx = i
		}
		if len(rec) > width {
			width = len(rec)
		}
	}
	if headerIdx < 0 {
		return nil
	}

	headers := headerNames(grid[headerIdx], width)

	rows := make([]Row, 0, len(grid)-headerIdx-1)
	for i := headerIdx + 1; i < len(grid); i++ {
		rec := grid[i]
		if isBlank(rec) {
			continue
		}

		row := make(Row, 0, len(rec))
		for j, raw := range rec {
			if strings.TrimSpace(raw) == "" {
				continue
			}

			v := Infer(raw)
			if typer != nil {
				if tv, ok := typer(i, j, raw); ok {
					v = tv
				}
			}
			row = append(row, Cell{Column: headers[j], Value: v})
		}
		rows = append(rows, row)
	}

	return rows
}

// headerNames fills blanks with __EMPTY, __EMPTY_1, ... and suffixes
// repeated names with _1, _2, ...
func headerNames(rec []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)

	for i := range width {
		base := ""
		if i < len(rec) {
			base = strings.TrimSpace(rec[i])
		}
		if base == "" {
			base = emptyHeader
		}

		name := base
		if n, dup := seen[base]; dup {
			name = base + "_" + strconv.Itoa(n)
			for {
				if _, taken := seen[name]; !taken {
					break
				}
				n++
				name = base + "_" + strconv.Itoa(n)
			}
			seen[base] = n + 1
		} else {
			seen[base] = 1
		}

		seen[name] = max(seen[name], 1)
		names[i] = name
	}

	return names
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
