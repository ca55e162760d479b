// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestUpdateWatcherDetectsMarker(t *testing.T) {
	dir := t.TempDir()

	w, err := NewUpdateWatcher(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewUpdateWatcher failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, UpdateMarker), []byte("v2"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Updates():
	case <-time.After(5 * time.Second):
		t.Fatal("no update notification")
	}
}

func TestUpdateWatcherPreexistingMarker(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, UpdateMarker), []byte("v2"), 0600); err != nil {
		t.Fatal(err)
	}

	w, err := NewUpdateWatcher(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewUpdateWatcher failed: %v", err)
	}
	defer w.Close()

	select {
	case <-w.Updates():
	case <-time.After(5 * time.Second):
		t.Fatal("preexisting marker not reported")
	}
}

func TestUpdateWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := NewUpdateWatcher(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewUpdateWatcher failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "state.db"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case _, ok := <-w.Updates():
		if ok {
			t.Fatal("notified for unrelated file")
		}
	case <-time.After(1 * time.Second):
	}
}

func TestUpdateWatcherCloseClosesChannel(t *testing.T) {
	w, err := NewUpdateWatcher(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewUpdateWatcher failed: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	select {
	case _, ok := <-w.Updates():
		if ok {
			t.Error("unexpected notification after close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("updates channel not closed")
	}
}
