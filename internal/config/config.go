// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/openclaw/openclaw-tui/internal/model"
	"github.com/openclaw/openclaw-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete openclaw configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Chat    ChatConfig    `toml:"chat"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

// APIConfig contains Messages API settings.
type APIConfig struct {
	// Model is the default model identifier.
	Model string `toml:"model"`
	// PersistKey stores the API key (obfuscated) in durable storage when
	// true. When false the key lives only for the session.
	PersistKey bool `toml:"persist_key"`
}

// ChatConfig contains conversation defaults.
type ChatConfig struct {
	// Persona is the default persona for new conversations.
	Persona string `toml:"persona"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// Path is the SQLite database location (empty = ~/.openclaw/state.db).
	Path string `toml:"path"`
	// QuotaBytes caps total stored bytes (0 = unlimited).
	QuotaBytes int `toml:"quota_bytes"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// Path is the log file location (empty = ~/.openclaw/openclaw.log).
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultQuotaBytes caps the conversation database at 5MB.
const DefaultQuotaBytes = 5 * 1024 * 1024

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Model: model.DefaultModelID,
		},
		Chat: ChatConfig{
			Persona: model.DefaultPersonaID,
		},
		Storage: StorageConfig{
			QuotaBytes: DefaultQuotaBytes,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the configuration directory, ~/.openclaw.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".openclaw"), nil
}

// Path returns the configuration file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StoragePath resolves the database location, honoring the configured
// override.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.db"), nil
}

// LogPath resolves the log file location, honoring the configured override.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return c.Log.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "openclaw.log"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, falling back to defaults when it does not
// exist. A malformed file is an error rather than silently ignored.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from an explicit location.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		cfg.applyEnvOverrides()
		cfg.setDefaults()
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()
	return cfg, nil
}

// Save writes the configuration to the default location.
// SECURITY: Config files use 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to an explicit location.
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# openclaw configuration file\n")
	buf.WriteString("# Generated by openclaw - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// OVERRIDES AND DEFAULTS
// =============================================================================

// applyEnvOverrides applies environment variables over file values.
func (c *Config) applyEnvOverrides() {
	if m := os.Getenv("OPENCLAW_MODEL"); m != "" {
		c.API.Model = m
	}
	if p := os.Getenv("OPENCLAW_PERSONA"); p != "" {
		c.Chat.Persona = p
	}
	if lvl := os.Getenv("OPENCLAW_LOG_LEVEL"); lvl != "" {
		c.Log.Level = lvl
	}
}

// setDefaults fills gaps left by a partial config file. Unknown model and
// persona IDs resolve to the registry defaults.
func (c *Config) setDefaults() {
	c.API.Model = model.ModelByID(c.API.Model).ID
	c.Chat.Persona = model.PersonaByID(c.Chat.Persona).ID
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.QuotaBytes < 0 {
		c.Storage.QuotaBytes = DefaultQuotaBytes
	}
}
