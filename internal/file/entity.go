// AngelaMos | 2026
// entity.go

package file

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carterperez-dev/sheetsense/internal/sheet"
)

type Type string

const (
	TypeExcel Type = "excel"
	TypeCSV   Type = "csv"
	TypePDF   Type = "pdf"
)

type File struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	DiskFileName string    `db:"disk_file_name"`
	Type         Type      `db:"type"`
	FileSize     int64     `db:"file_size"`
	UploadedBy   string    `db:"uploaded_by"`
	Data         Rows      `db:"data"`
	RowCount     int       `db:"row_count"`
	UploadedAt   time.Time `db:"uploaded_at"`
}

// Rows is the parsed table in the data column. Each row is stored as an
// array of [column, value] pairs since jsonb sorts object keys and the
// header order has to survive the round trip.
type Rows []sheet.Row

func (r Rows) Value() (driver.Value, error) {
	stored := make([][][2]any, 0, len(r))
	for _, row := range r {
		pairs := make([][2]any, 0, len(row))
		for _, c := range row {
			pairs = append(pairs, [2]any{c.Column, c.Value})
		}
		stored = append(stored, pairs)
	}

	b, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	return b, nil
}

func (r *Rows) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = Rows{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan rows: unsupported type %T", src)
	}

	var stored [][][2]json.RawMessage
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("scan rows: %w", err)
	}

	rows := make(Rows, 0, len(stored))
	for _, pairs := range stored {
		row := make(sheet.Row, 0, len(pairs))
		for _, p := range pairs {
			var c sheet.Cell
			if err := json.Unmarshal(p[0], &c.Column); err != nil {
				return fmt.Errorf("scan rows: column: %w", err)
			}
			if err := c.Value.UnmarshalJSON(p[1]); err != nil {
				return fmt.Errorf("scan rows: %q: %w", c.Column, err)
			}
			row = append(row, c)
		}
		rows = append(rows, row)
	}

	*r = rows
	return nil
}
