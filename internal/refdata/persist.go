// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package refdata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/killfeed/internal/metrics"
)

// fileStore reads and writes one names file and one parents file per kind:
//
//	system.json          {"system/30000142": "Jita"}
//	system.parents.json  {"system/30000142": 20000020}
type fileStore struct {
	dir string
}

func (s *fileStore) namesPath(k Kind) string {
	return filepath.Join(s.dir, string(k)+".json")
}

func (s *fileStore) parentsPath(k Kind) string {
	return filepath.Join(s.dir, string(k)+".parents.json")
}

func (s *fileStore) read(k Kind) (map[string]string, map[string]int64, error) {
	names := map[string]string{}
	parents := map[string]int64{}
	if err := readJSON(s.namesPath(k), &names); err != nil {
		return nil, nil, err
	}
	if err := readJSON(s.parentsPath(k), &parents); err != nil {
		return nil, nil, err
	}
	return names, parents, nil
}

func (s *fileStore) write(k Kind, names map[string]string, parents map[string]int64) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if err := writeJSON(s.namesPath(k), names); err != nil {
		return err
	}
	if len(parents) == 0 {
		return nil
	}
	return writeJSON(s.parentsPath(k), parents)
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// writeJSON replaces path atomically.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads every kind file. Malformed keys are skipped; a malformed file
// is an error.
func (c *Cache) Load() error {
	if c.store == nil {
		return nil
	}
	loaded := 0
	for _, k := range Kinds {
		names, parents, err := c.store.read(k)
		if err != nil {
			return fmt.Errorf("load %s cache: %w", k, err)
		}
		c.mu.Lock()
		for key, name := range names {
			ref, err := parseRef(key)
			if err != nil || ref.Kind != k {
				c.logger.Warn().Str("key", key).Str("kind", string(k)).Msg("Skipping malformed cache entry")
				continue
			}
			c.entries[ref] = Entity{Kind: k, ID: ref.ID, Name: name, ParentID: parents[key]}
			loaded++
		}
		c.mu.Unlock()
	}
	c.logger.Info().Int("entries", loaded).Str("dir", c.store.dir).Msg("Reference data cache loaded")
	return nil
}

// Flush rewrites the file of every dirty kind in full. It is called by the
// debounce loop and once more on shutdown.
func (c *Cache) Flush() error {
	if c.store == nil {
		return nil
	}

	type snapshot struct {
		names   map[string]string
		parents map[string]int64
	}
	c.mu.Lock()
	pending := make(map[Kind]snapshot)
	for k, dirty := range c.dirty {
		if !dirty {
			continue
		}
		pending[k] = snapshot{names: map[string]string{}, parents: map[string]int64{}}
		c.dirty[k] = false
	}
	for ref, e := range c.entries {
		snap, ok := pending[ref.Kind]
		if !ok {
			continue
		}
		snap.names[ref.String()] = e.Name
		if e.ParentID != 0 {
			snap.parents[ref.String()] = e.ParentID
		}
	}
	c.mu.Unlock()

	var errs []error
	for k, snap := range pending {
		if err := c.store.write(k, snap.names, snap.parents); err != nil {
			errs = append(errs, fmt.Errorf("write %s cache: %w", k, err))
			c.mu.Lock()
			c.dirty[k] = true
			c.mu.Unlock()
		}
	}
	err := errors.Join(errs...)
	if len(pending) > 0 {
		metrics.RecordRefDataFlush(err)
	}
	return err
}

// Serve runs the debounced flush loop until ctx is done, then flushes once
// more. It implements suture.Service.
func (c *Cache) Serve(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			if err := c.Flush(); err != nil {
				c.logger.Error().Err(err).Msg("Final reference data flush failed")
			}
			return ctx.Err()
		case <-c.notify:
			if timer == nil {
				timer = time.NewTimer(c.delay)
				fire = timer.C
			}
		case <-fire:
			timer, fire = nil, nil
			if err := c.Flush(); err != nil {
				c.logger.Error().Err(err).Msg("Reference data flush failed")
			}
		}
	}
}

// String implements fmt.Stringer for the supervisor.
func (c *Cache) String() string {
	return "refdata-cache"
}
