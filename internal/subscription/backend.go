// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package subscription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Backend persists one record per guild. Records are opaque JSON documents
// owned by the Store; a Save always replaces the whole record.
type Backend interface {
	// LoadAll returns every persisted record keyed by guild id.
	LoadAll(ctx context.Context) (map[string][]byte, error)
	// Save replaces the record of a guild.
	Save(ctx context.Context, guildID string, record []byte) error
	// Delete removes a guild's record. Deleting a missing record is not an error.
	Delete(ctx context.Context, guildID string) error
	// Name identifies the backend in logs and metrics.
	Name() string
}

var guildFile = regexp.MustCompile(`^(\d+)\.json$`)

// FileBackend stores each guild as <dir>/<guildID>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create subscription dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) path(guildID string) string {
	return filepath.Join(b.dir, guildID+".json")
}

func (b *FileBackend) LoadAll(ctx context.Context) (map[string][]byte, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("read subscription dir: %w", err)
	}
	out := make(map[string][]byte)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := guildFile.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		out[m[1]] = data
	}
	return out, nil
}

// Save writes to a temporary file and renames it over the record so a
// crash never leaves a truncated file behind.
func (b *FileBackend) Save(_ context.Context, guildID string, record []byte) error {
	tmp, err := os.CreateTemp(b.dir, guildID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		return fmt.Errorf("write guild %s: %w", guildID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync guild %s: %w", guildID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close guild %s: %w", guildID, err)
	}
	if err := os.Rename(tmp.Name(), b.path(guildID)); err != nil {
		return fmt.Errorf("rename guild %s: %w", guildID, err)
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, guildID string) error {
	if err := os.Remove(b.path(guildID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete guild %s: %w", guildID, err)
	}
	return nil
}
