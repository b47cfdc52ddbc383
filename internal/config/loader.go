package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/streamheat/internal/column"
)

// ErrMalformedCSV indicates a measurement file that cannot be parsed.
var ErrMalformedCSV = errors.New("config: malformed measurement file")

// LoadPressure reads time,dH,T_riv rows. offset is added to temperatures.
func LoadPressure(path string, offset float64) ([]column.PressureRecord, error) {
	rows, err := readRows(path, 3)
	if err != nil {
		return nil, err
	}
	out := make([]column.PressureRecord, len(rows))
	for i, row := range rows {
		t, err := ParseTime(row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrMalformedCSV, path, i+2, err)
		}
		v, err := parseFloats(row[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrMalformedCSV, path, i+2, err)
		}
		out[i] = column.PressureRecord{Time: t, DH: v[0], TRiv: v[1] + offset}
	}
	return out, nil
}

// LoadTemperature reads time,T1..Tk,T_aq rows. Empty cells and NaN mark
// missing measurements. offset is added to temperatures.
func LoadTemperature(path string, offset float64) ([]column.TemperatureRecord, error) {
	rows, err := readRows(path, 2)
	if err != nil {
		return nil, err
	}
	out := make([]column.TemperatureRecord, len(rows))
	for i, row := range rows {
		t, err := ParseTime(row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrMalformedCSV, path, i+2, err)
		}
		v, err := parseFloats(row[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrMalformedCSV, path, i+2, err)
		}
		for k := range v {
			v[k] += offset
		}
		out[i] = column.TemperatureRecord{Time: t, Sensors: v}
	}
	return out, nil
}

// ParseTime accepts RFC 3339 timestamps or seconds since the Unix epoch.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q is neither RFC 3339 nor seconds", s)
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

// readRows returns the data rows after the header, all of the same width
// and at least minFields wide.
func readRows(path string, minFields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.Comment = '#'

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s is empty", ErrMalformedCSV, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCSV, path, err)
	}
	if len(header) < minFields {
		return nil, fmt.Errorf("%w: %s has %d columns, need %d", ErrMalformedCSV, path, len(header), minFields)
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCSV, path, err)
	}
	return records, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || strings.EqualFold(f, "nan") {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
