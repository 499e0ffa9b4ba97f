// internal/appconfig/save.go
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SaveFavorites rewrites the "favorites" key of the JSON config at path and
// leaves every other key as it was. A missing file is created. Keys are
// written in sorted order.
func SaveFavorites(path string, favorites []string) error {
	if path == "" {
		return errors.New("no config file to save favorites to")
	}

	doc := map[string]json.RawMessage{}
	mode := os.FileMode(0o644)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) > 0 {
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("could not parse config file %q: %w", path, err)
			}
		}
		if info, statErr := os.Stat(path); statErr == nil {
			mode = info.Mode().Perm()
		}
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	default:
		return fmt.Errorf("could not read config file %q: %w", path, err)
	}

	if favorites == nil {
		favorites = []string{}
	}
	encoded, err := json.Marshal(favorites)
	if err != nil {
		return err
	}
	doc["favorites"] = encoded

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(out, '\n'), mode); err != nil {
		return fmt.Errorf("write config file %q: %w", path, err)
	}
	return nil
}
