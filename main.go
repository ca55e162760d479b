// openclaw TUI - a terminal chat client for the Anthropic Messages API.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/openclaw/openclaw-tui/internal/anthropic"
	"github.com/openclaw/openclaw-tui/internal/chat"
	"github.com/openclaw/openclaw-tui/internal/config"
	"github.com/openclaw/openclaw-tui/internal/model"
	"github.com/openclaw/openclaw-tui/internal/offline"
	"github.com/openclaw/openclaw-tui/internal/security"
	"github.com/openclaw/openclaw-tui/internal/storage"
	uichat "github.com/openclaw/openclaw-tui/internal/ui/chat"
	"github.com/openclaw/openclaw-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	var err error
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "-v", "--version":
			fmt.Printf("openclaw %s (%s)\n", Version, GitCommit)
			return
		case "ask":
			err = runAsk(os.Args[2:])
		default:
			fmt.Fprintf(os.Stderr, "Unknown command %q. Usage: openclaw [version|ask <prompt>]\n", os.Args[1])
			os.Exit(2)
		}
	} else {
		err = run()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runAsk answers a single prompt on stdout, without the TUI or streaming.
func runAsk(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: openclaw ask <prompt>")
	}
	prompt := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var kv storage.KV = storage.NewMemoryKV()
	if path, err := cfg.StoragePath(); err == nil {
		if db, err := storage.OpenSQLiteKV(path, cfg.Storage.QuotaBytes); err == nil {
			defer db.Close()
			kv = db
		}
	}

	vault := security.NewVault(kv, zerolog.Nop())
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		_ = vault.Store(key, false)
	}
	if !vault.HasCredential() {
		return fmt.Errorf("no API key configured (set ANTHROPIC_API_KEY or use /key in the TUI)")
	}

	guard := security.NewGuard()
	text := guard.Sanitize(prompt)
	if text == "" {
		return fmt.Errorf("nothing to ask")
	}
	if label, hit := guard.DetectInjection(text); hit {
		vault.RecordViolation("injection", label+": "+text)
		return fmt.Errorf("prompt rejected by the input screen")
	}

	ctx, cancel := context.WithTimeout(context.Background(), anthropic.DefaultTimeout)
	defer cancel()

	reply, err := anthropic.NewClient().Message(ctx, vault.Retrieve(), anthropic.Request{
		Model:    model.ModelByID(cfg.API.Model).ID,
		System:   model.PersonaByID(cfg.Chat.Persona).Prompt,
		Messages: []model.PromptMessage{{Role: "user", Content: text}},
	})
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, logClose, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logClose()
	log.Info().Str("version", Version).Str("commit", GitCommit).Msg("starting")

	// Durable storage, with an in-memory fallback so a broken database
	// still yields a usable session.
	var kv storage.KV
	var kvClose func() error
	if path, err := cfg.StoragePath(); err == nil {
		if db, err := storage.OpenSQLiteKV(path, cfg.Storage.QuotaBytes); err == nil {
			kv = db
			kvClose = db.Close
		} else {
			log.Warn().Err(err).Msg("database unavailable, running in memory")
		}
	}
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	if kvClose != nil {
		defer kvClose()
	}

	vault := security.NewVault(kv, log)
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		// Environment credentials stay session-scoped.
		if err := vault.Store(key, false); err != nil {
			log.Warn().Msg("ANTHROPIC_API_KEY has an unexpected format, ignoring")
		}
	}

	store := storage.NewStore(kv, log)
	limiter := security.NewRateLimiter()
	ctrl := chat.New(security.NewGuard(), limiter, vault, store, anthropic.NewClient(), log)
	ctrl.SetModel(cfg.API.Model)
	if _, err := store.Active(); err != nil {
		log.Warn().Err(err).Msg("initial persist failed")
	}

	// Staged-update watcher is best effort.
	var updates <-chan struct{}
	if dir, err := config.Dir(); err == nil {
		if watcher, err := offline.NewUpdateWatcher(dir, log); err == nil {
			defer watcher.Close()
			updates = watcher.Updates()
		} else {
			log.Warn().Err(err).Msg("update watcher unavailable")
		}
	}

	view := uichat.New(uichat.Options{
		Controller: ctrl,
		Store:      store,
		Vault:      vault,
		Limiter:    limiter,
		Theme:      styles.New(),
		Updates:    updates,
		PersistKey: cfg.API.PersistKey,
	})

	p := tea.NewProgram(view, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI failed: %w", err)
	}
	return nil
}

// newLogger builds the file-backed zerolog logger. The TUI owns the
// terminal, so logs never go to stderr while it runs.
func newLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	path, err := cfg.LogPath()
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return zerolog.Nop(), func() {}, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		// Logging must never block startup.
		return zerolog.New(io.Discard), func() {}, nil
	}

	log := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return log, func() { f.Close() }, nil
}
