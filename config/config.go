// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName        = "voxlet"
	configFileName = "config.json"

	// DefaultServerURL points at a locally running agent server.
	DefaultServerURL = "http://localhost:8000"

	// DefaultSampleRate and DefaultFrameSize match what the agent server
	// expects on its audio channel.
	DefaultSampleRate = 16000
	DefaultFrameSize  = 4096
)

// Config represents the application configuration.
type Config struct {
	ServerURL  string `json:"server_url"`
	SampleRate int    `json:"sample_rate"`
	FrameSize  int    `json:"frame_size"`

	// TargetLanguage is the default language for /translate requests.
	TargetLanguage string `json:"target_language,omitempty"`

	// Persona is an optional system-prompt style for the agent.
	Persona string `json:"persona,omitempty"`

	// DataDir overrides where chat history is stored. Empty means the
	// platform's user config directory.
	DataDir string `json:"data_dir,omitempty"`
}

// Load loads configuration from the config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// StorePath returns the directory holding the chat history database.
func (c *Config) StorePath() (string, error) {
	if c.DataDir != "" {
		return filepath.Join(c.DataDir, "chats"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, "chats"), nil
}

func (c *Config) applyDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.FrameSize == 0 {
		c.FrameSize = DefaultFrameSize
	}
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
