// AngelaMos | 2026
// row.go

package sheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type Cell struct {
	Column string
	Value  Value
}

// Row keeps cells in header order. It encodes as a JSON object whose keys
// appear in that order, and decodes back without losing it.
type Row []Cell

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(c.Column)
		if err != nil {
			return nil, fmt.Errorf("encode column %q: %w", c.Column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := c.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode column %q: %w", c.Column, err)
		}
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("decode row: expected object")
	}

	row := Row{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode row key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("decode row: non-string key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode row value %q: %w", key, err)
		}

		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return err
		}
		row = append(row, Cell{Column: key, Value: v})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}

	*r = row
	return nil
}
