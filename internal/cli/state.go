package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNoDataset is returned by commands that need a selected dataset.
var ErrNoDataset = errors.New("no dataset selected; run `datalens use <filename>` first")

// ErrStaleDataset is returned when the selected dataset is gone from the server.
var ErrStaleDataset = errors.New("selected dataset not found; run `datalens use <filename>`")

// State is what the CLI remembers between runs.
type State struct {
	Filename  string `yaml:"filename,omitempty"`
	DatasetID int64  `yaml:"dataset_id,omitempty"`
}

// LoadState reads path; a missing file is an empty state.
func LoadState(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var s State
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return &s, nil
}

func (s *State) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir state dir: %w", err)
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Selected returns the selected dataset or ErrNoDataset.
func (s *State) Selected() (string, int64, error) {
	if s == nil || s.Filename == "" {
		return "", 0, ErrNoDataset
	}
	return s.Filename, s.DatasetID, nil
}
