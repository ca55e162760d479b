// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openclaw/openclaw-tui/internal/model"
)

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.API.Model != model.DefaultModelID {
		t.Errorf("model = %q, want default", cfg.API.Model)
	}
	if cfg.Chat.Persona != model.DefaultPersonaID {
		t.Errorf("persona = %q, want default", cfg.Chat.Persona)
	}
	if cfg.Storage.QuotaBytes != DefaultQuotaBytes {
		t.Errorf("quota = %d, want default", cfg.Storage.QuotaBytes)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.API.Model = "claude-haiku-4-5-20251001"
	cfg.Chat.Persona = "coder"
	cfg.API.PersistKey = true
	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != 0600 {
		t.Errorf("permissions = %o, want 0600", got)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.API.Model != "claude-haiku-4-5-20251001" {
		t.Errorf("model = %q", loaded.API.Model)
	}
	if loaded.Chat.Persona != "coder" {
		t.Errorf("persona = %q", loaded.Chat.Persona)
	}
	if !loaded.API.PersistKey {
		t.Error("persist_key not round-tripped")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api\nmodel="), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("malformed config loaded without error")
	}
}

func TestUnknownIDsResolveToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[api]\nmodel = \"gpt-99\"\n\n[chat]\npersona = \"pirate\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.API.Model != model.DefaultModelID {
		t.Errorf("unknown model resolved to %q", cfg.API.Model)
	}
	if cfg.Chat.Persona != model.DefaultPersonaID {
		t.Errorf("unknown persona resolved to %q", cfg.Chat.Persona)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("OPENCLAW_MODEL", "claude-haiku-4-5-20251001")
	t.Setenv("OPENCLAW_LOG_LEVEL", "debug")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.Model != "claude-haiku-4-5-20251001" {
		t.Errorf("env model override ignored: %q", cfg.API.Model)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("env log level override ignored: %q", cfg.Log.Level)
	}
}
