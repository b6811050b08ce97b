// AngelaMos | 2026
// parser_test.go

package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	input := "name,age,active\nalice,30,TRUE\nbob,,false\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"name", "age", "active"}, columns(rows[0]))

	age, ok := cell(rows[0], "age")
	require.True(t, ok)
	assert.Equal(t, Number(30), age)

	active, ok := cell(rows[0], "active")
	require.True(t, ok)
	assert.Equal(t, Bool(true), active)

	assert.Equal(t, []string{"name", "active"}, columns(rows[1]),
		"blank cells are left out")
}

func TestParseCSVStripsBOM(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("\xEF\xBB\xBFid\n7\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	v, ok := cell(rows[0], "id")
	require.True(t, ok)
	assert.Equal(t, Number(7), v)
}

func TestParseCSVSkipsBlankRows(t *testing.T) {
	input := "\n,,\ncity\nOslo\n,\nLima\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first, _ := cell(rows[0], "city")
	second, _ := cell(rows[1], "city")
	assert.Equal(t, String("Oslo"), first)
	assert.Equal(t, String("Lima"), second)
}

func TestParseCSVNoRows(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "header only", input: "a,b,c\n"},
		{name: "blank data", input: "a,b\n,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrNoRows)
		})
	}
}

func TestHeaderNames(t *testing.T) {
	got := headerNames([]string{"a", "a", "", " ", "a_1"}, 6)

	assert.Equal(t, []string{
		"a", "a_1", "__EMPTY", "__EMPTY_1", "a_1_1", "__EMPTY_2",
	}, got)
}

func TestParseXLSX(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close() //nolint:errcheck // test workbook

	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]any{"Name", "Score", "Passed"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]any{"alice", 91.5, true}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A3", &[]any{"bob", 47, false}))

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"Name", "Score", "Passed"}, columns(rows[0]))

	name, _ := cell(rows[0], "Name")
	score, _ := cell(rows[0], "Score")
	passed, _ := cell(rows[0], "Passed")
	assert.Equal(t, String("alice"), name)
	assert.Equal(t, Number(91.5), score)
	assert.Equal(t, Bool(true), passed)

	failed, _ := cell(rows[1], "Passed")
	assert.Equal(t, Bool(false), failed)
}

func TestParseXLSXReadsFirstSheetOnly(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close() //nolint:errcheck // test workbook

	_, err := wb.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]any{"k"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]any{"first"}))
	require.NoError(t, wb.SetSheetRow("Other", "A1", &[]any{"k"}))
	require.NoError(t, wb.SetSheetRow("Other", "A2", &[]any{"second"}))

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ParseXLSX(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	v, _ := cell(rows[0], "k")
	assert.Equal(t, String("first"), v)
}

func TestParseXLSXEmptySheet(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close() //nolint:errcheck // test workbook

	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]any{"only", "headers"}))

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	_, err = ParseXLSX(buf)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestParseXLSXRejectsGarbage(t *testing.T) {
	_, err := ParseXLSX(strings.NewReader("definitely not a zip"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRows)
}

func columns(row Row) []string {
	cols := make([]string, 0, len(row))
	for _, c := range row {
		cols = append(cols, c.Column)
	}
	return cols
}

func cell(row Row, column string) (Value, bool) {
	for _, c := range row {
		if c.Column == column {
			return c.Value, true
		}
	}
	return Value{}, false
}
