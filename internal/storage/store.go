package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const MetadataName = "metadata.json"

// Store manages a directory of sweep output directories, each holding
// binary arrays, a trial table and a metadata.json file.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type Failure struct {
	Trial int    `json:"trial"`
	Error string `json:"error"`
}

type Metadata struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Plan      string    `json:"plan,omitempty"`
	Trials    int       `json:"trials"`
	Completed int       `json:"completed"`
	Workers   int       `json:"workers"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Failures  []Failure `json:"failures,omitempty"`
}

// WriteMetadata stores meta as indented JSON in dir.
func WriteMetadata(dir string, meta Metadata) error {
	path := filepath.Join(dir, MetadataName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

func LoadMetadata(dir string) (*Metadata, error) {
	path := filepath.Join(dir, MetadataName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", path, err)
	}
	return &meta, nil
}

// Save writes meta into <base>/<meta.ID>, creating the directory.
func (s *Store) Save(meta Metadata) (string, error) {
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	return runDir, WriteMetadata(runDir, meta)
}

// List returns the metadata of every run directory, oldest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	runs := make([]Metadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := LoadMetadata(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Started.Before(runs[j].Started) })
	return runs, nil
}

func (s *Store) Load(runID string) (*Metadata, error) {
	return LoadMetadata(filepath.Join(s.baseDir, runID))
}
