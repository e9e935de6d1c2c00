package quizkit

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

type Table struct {
	Header []string
	Rows   [][]string
}

// ReadCSV treats the first record as the header. Ragged rows are allowed.
func ReadCSV(text string) (*Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

func (t *Table) index(name string) (int, error) {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %q not found in %v", name, t.Header)
}

// Column returns the cells of the named column; short rows yield "".
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.index(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		} else {
			out = append(out, "")
		}
	}
	return out, nil
}

func (t *Table) Floats(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	return Floats(col)
}

func Floats(values []string) ([]float64, error) {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d (%q): %w", i, v, err)
		}
		out = append(out, f)
	}
	return out, nil
}
