package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExportData collects the tracker series of one trial for JSON export.
type ExportData struct {
	Trial  string               `json:"trial"`
	Series map[string][]float64 `json:"series"`
}

// LoadSeries reads the arrays <dir>/<trial>_<field> for every field that
// exists. Missing fields are skipped.
func LoadSeries(dir, trial string, fields []string) (*ExportData, error) {
	data := &ExportData{Trial: trial, Series: make(map[string][]float64)}
	for _, field := range fields {
		path := filepath.Join(dir, trial+"_"+field)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		v, err := ReadArray(path)
		if err != nil {
			return nil, err
		}
		data.Series[field] = v
	}
	if len(data.Series) == 0 {
		return nil, fmt.Errorf("storage: no series found for trial %q in %s", trial, dir)
	}
	return data, nil
}

func ExportJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
