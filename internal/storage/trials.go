package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

const TrialTableName = "trials.csv"

// TrialRow is one line of a trial table: the trial index followed by the value
// of every swept parameter, in header order.
type TrialRow struct {
	Index  int
	Values []float64
}

// WriteTrialTable writes a CSV file with a "trial" column followed by one
// column per parameter name.
func WriteTrialTable(path string, names []string, rows []TrialRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	header := append([]string{"trial"}, names...)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("storage: write %s: %w", path, err)
	}

	record := make([]string, len(names)+1)
	for _, row := range rows {
		if len(row.Values) != len(names) {
			f.Close()
			return fmt.Errorf("storage: trial %d has %d values, want %d", row.Index, len(row.Values), len(names))
		}
		record[0] = strconv.Itoa(row.Index)
		for i, v := range row.Values {
			record[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("storage: write %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return f.Close()
}

// ReadTrialTable reads a table written by WriteTrialTable.
func ReadTrialTable(path string) ([]string, []TrialRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("storage: %s: missing header", path)
	}

	names := records[0][1:]
	rows := make([]TrialRow, 0, len(records)-1)
	for line, record := range records[1:] {
		idx, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %s line %d: %w", path, line+2, err)
		}
		row := TrialRow{Index: idx, Values: make([]float64, len(record)-1)}
		for i, s := range record[1:] {
			if row.Values[i], err = strconv.ParseFloat(s, 64); err != nil {
				return nil, nil, fmt.Errorf("storage: %s line %d: %w", path, line+2, err)
			}
		}
		rows = append(rows, row)
	}
	return names, rows, nil
}
