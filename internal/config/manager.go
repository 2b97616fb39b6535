package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// AppDir is the directory name under the user config dir.
	AppDir = "dodo-plan"

	DefaultProvider   = "openai"
	DefaultPlanFolder = "plan"

	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config holds the user's persistent configuration preferences.
type Config struct {
	LLMProvider string `json:"llm_provider,omitempty"` // openai, anthropic, kimi, etc.
	APIKey      string `json:"api_key,omitempty"`      // The API key for the selected provider
	Model       string `json:"model,omitempty"`        // Default model name
	BaseURL     string `json:"base_url,omitempty"`     // Optional override for API base URL
	PlanFolder  string `json:"plan_folder,omitempty"`  // Plan root created under each project
	Store       string `json:"store,omitempty"`        // Session storage backend: file or sqlite
	Stream      bool   `json:"stream"`                 // Stream replies as they are generated
}

// Default returns the configuration written on first use.
func Default() *Config {
	return &Config{
		LLMProvider: DefaultProvider,
		PlanFolder:  DefaultPlanFolder,
		Store:       StoreFile,
		Stream:      true,
	}
}

// withDefaults fills empty fields from Default.
func (c *Config) withDefaults() {
	d := Default()
	if c.LLMProvider == "" {
		c.LLMProvider = d.LLMProvider
	}
	if c.PlanFolder == "" {
		c.PlanFolder = d.PlanFolder
	}
	if c.Store == "" {
		c.Store = d.Store
	}
}

// ApplyEnv lets environment variables override the stored values.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PLANNER_PROVIDER"); v != "" {
		c.LLMProvider = v
	}
	if v := os.Getenv("PLANNER_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("PLANNER_PLAN_FOLDER"); v != "" {
		c.PlanFolder = v
	}
	if v := os.Getenv("PLANNER_STORE"); v != "" {
		c.Store = v
	}
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if !filepath.IsLocal(c.PlanFolder) {
		return fmt.Errorf("plan_folder must be a relative path inside the project, got %q", c.PlanFolder)
	}
	switch c.Store {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (supported: %s, %s)", c.Store, StoreFile, StoreSQLite)
	}
	return nil
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a configuration manager under the user config dir.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}
	return NewManagerAt(filepath.Join(configDir, AppDir)), nil
}

// NewManagerAt creates a configuration manager rooted at dir.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// Dir returns the configuration directory; session data is kept beside the config file.
func (m *Manager) Dir() string {
	return m.configDir
}

// GetConfigPath returns the absolute path to the config.json file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the configuration from disk.
// If the file does not exist, it returns the defaults and no error.
func (m *Manager) Load() (*Config, error) {
	path := m.GetConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decode over the defaults so keys absent from the file keep them.
	cfg := *Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config json: %w", err)
	}
	cfg.withDefaults()

	return &cfg, nil
}

// EnsureDefaults loads the configuration, writing the default file first
// when none exists yet.
func (m *Manager) EnsureDefaults() (*Config, error) {
	if !m.Exists() {
		if err := m.Save(Default()); err != nil {
			return nil, err
		}
	}
	return m.Load()
}

// Save writes the configuration to disk with restricted permissions (0600).
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold an API key: owner read/write only.
	if err := os.WriteFile(m.GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}
