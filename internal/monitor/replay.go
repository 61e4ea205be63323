package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadStatic reads a YAML list of monitors, for replaying a recorded
// topology instead of querying the display server.
func LoadStatic(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []Monitor
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, m := range list {
		if m.Name == "" {
			return nil, fmt.Errorf("parse %s: monitor %d has no name", path, i)
		}
	}
	return Static(list), nil
}

// File is a Source that re-reads a recorded topology on every List, so a
// PollWatcher notices edits to it.
type File string

func (f File) List(ctx context.Context) ([]Monitor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list, err := LoadStatic(string(f))
	if err != nil {
		return nil, err
	}
	return []Monitor(list), nil
}

// SaveStatic records list as YAML for LoadStatic, creating parent
// directories as needed.
func SaveStatic(path string, list []Monitor) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(list)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
