package panel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// ReadCSV parses a panel from "date,col1,col2,..." rows with ISO dates.
// Empty cells, "NaN" and "." are treated as missing.
func ReadCSV(r io.Reader) (*Panel, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 1 || !strings.EqualFold(strings.TrimSpace(header[0]), "date") {
		return nil, errors.New("first column must be date")
	}

	var dates []time.Time
	cols := make([][]float64, len(header)-1)
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		d, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse date: %w", line, err)
		}
		dates = append(dates, d)
		for j := 1; j < len(header); j++ {
			v, err := ParseValue(rec[j])
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[j], err)
			}
			cols[j-1] = append(cols[j-1], v)
		}
	}

	p, err := New(dates)
	if err != nil {
		return nil, err
	}
	for j, name := range header[1:] {
		if err := p.AddColumn(strings.TrimSpace(name), cols[j]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ParseValue parses one numeric cell. Missing markers yield NaN.
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", ".", "nan", "na", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteCSV writes the panel with the given columns (all columns when none are named).
func WriteCSV(w io.Writer, p *Panel, columns ...string) error {
	if len(columns) == 0 {
		columns = p.Columns()
	}
	data := make([][]float64, len(columns))
	for j, name := range columns {
		col, err := p.MustColumn(name)
		if err != nil {
			return err
		}
		data[j] = col
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(append([]string{"date"}, columns...)); err != nil {
		return err
	}
	rec := make([]string, len(columns)+1)
	for i := 0; i < p.Len(); i++ {
		rec[0] = p.Date(i).Format(time.DateOnly)
		for j := range columns {
			v := data[j][i]
			if math.IsNaN(v) {
				rec[j+1] = ""
			} else {
				rec[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
