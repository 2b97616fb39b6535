// Package project reads the optional per-project planning settings kept in
// <project>/.dodo/.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DodoDir is the directory name for per-project configuration
	DodoDir = ".dodo"
	// ConfigFile is the name of the project configuration file
	ConfigFile = "config.json"
	// YAMLConfigFile is an alternative configuration file; it wins over ConfigFile
	YAMLConfigFile = "config.yaml"
	// RulesFile holds extra planning guidance appended to the system prompt
	RulesFile = "rules"
)

// ProjectConfig holds per-project settings.
type ProjectConfig struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"` // default name for new sessions
}

func rulesPath(projectRoot string) string {
	return filepath.Join(projectRoot, DodoDir, RulesFile)
}

// LoadConfig reads the project configuration from .dodo/config.yaml or
// .dodo/config.json. Returns an empty config and no error if neither exists.
func LoadConfig(projectRoot string) (*ProjectConfig, error) {
	dir := filepath.Join(projectRoot, DodoDir)

	data, err := os.ReadFile(filepath.Join(dir, YAMLConfigFile))
	if err == nil {
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse project config %s: %w", YAMLConfigFile, err)
		}
		return &cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	data, err = os.ReadFile(filepath.Join(dir, ConfigFile))
	if os.IsNotExist(err) {
		return &ProjectConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	var cfg ProjectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config %s: %w", ConfigFile, err)
	}
	return &cfg, nil
}

// LoadRules reads custom planning rules from the .dodo/rules file.
// Returns empty string and no error if the file does not exist.
func LoadRules(projectRoot string) (string, error) {
	data, err := os.ReadFile(rulesPath(projectRoot))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read rules file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
