package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"catalogscraper/pkg/storage"
)

// FileBackend keeps results in the link-results JSON format
// (group -> {subgroup -> [values]}) and completion in a sibling
// <name>.completed.json file (group -> [subgroups]).
type FileBackend struct {
	resultsPath   string
	completedPath string
}

// NewFileBackend stores results at resultsPath
func NewFileBackend(resultsPath string) *FileBackend {
	ext := filepath.Ext(resultsPath)
	return &FileBackend{
		resultsPath:   resultsPath,
		completedPath: strings.TrimSuffix(resultsPath, ext) + ".completed.json",
	}
}

func (b *FileBackend) Describe() string { return b.resultsPath }

func (b *FileBackend) Load(ctx context.Context) (*State, error) {
	state := &State{
		Results:   make(map[string]map[string][]string),
		Completed: make(map[string][]string),
	}

	found, err := readJSON(b.resultsPath, &state.Results)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	if _, err := readJSON(b.completedPath, &state.Completed); err != nil {
		return nil, err
	}
	if info, err := os.Stat(b.resultsPath); err == nil {
		state.UpdatedAt = info.ModTime()
	}
	return state, nil
}

// Save writes results before completion so that a crash between the two
// writes can only leave a key un-completed, never completed with stale results.
func (b *FileBackend) Save(ctx context.Context, state *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeJSON(b.resultsPath, state.Results); err != nil {
		return err
	}
	return writeJSON(b.completedPath, state.Completed)
}

func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return true, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return storage.WriteFileAtomic(path, append(data, '\n'))
}
