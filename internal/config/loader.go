package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges settings from global and project paths.
// Order of precedence (highest to lowest): project file, global file,
// defaults. Missing files are not errors; malformed JSON is.
func Load(globalPath, projectPath string) (*Settings, error) {
	cfg := DefaultSettings()

	if globalPath != "" {
		if err := mergeFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}
	if projectPath != "" {
		if err := mergeFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// LoadDefault loads settings from conventional paths.
// Global: ~/.tempo/config.json
// Project: .tempo/config.json (relative to cwd)
func LoadDefault() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".tempo", "config.json")
	projectPath := filepath.Join(".tempo", "config.json")

	return Load(globalPath, projectPath)
}

// mergeFile reads a JSON settings file and overlays its set fields onto
// the base. Missing files are silently skipped.
func mergeFile(base *Settings, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if len(loaded.DefaultWorkHours.Blocks) > 0 {
		base.DefaultWorkHours = loaded.DefaultWorkHours
	}
	for weekday, hours := range loaded.CustomWorkHours {
		if base.CustomWorkHours == nil {
			base.CustomWorkHours = make(map[string]DayHours)
		}
		base.CustomWorkHours[weekday] = hours
	}
	if loaded.DefaultMode != "" {
		base.DefaultMode = loaded.DefaultMode
	}
	if loaded.HorizonDays > 0 {
		base.HorizonDays = loaded.HorizonDays
	}
	if loaded.DatabasePath != "" {
		base.DatabasePath = loaded.DatabasePath
	}

	return nil
}
