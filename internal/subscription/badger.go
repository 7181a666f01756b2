// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package subscription

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const badgerGuildPrefix = "guild:"

// BadgerBackend stores guild records under guild:<id> in a Badger database.
type BadgerBackend struct {
	db    *badger.DB
	owned bool
}

// OpenBadger opens (or creates) a Badger database at path.
func OpenBadger(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerBackend{db: db, owned: true}, nil
}

// NewBadgerBackend uses an already open database. Close leaves it open.
func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

func (b *BadgerBackend) Name() string { return "badger" }

func (b *BadgerBackend) LoadAll(ctx context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerGuildPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[strings.TrimPrefix(string(item.Key()), badgerGuildPrefix)] = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate guild records: %w", err)
	}
	return out, nil
}

func (b *BadgerBackend) Save(_ context.Context, guildID string, record []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerGuildPrefix+guildID), record)
	})
	if err != nil {
		return fmt.Errorf("save guild %s: %w", guildID, err)
	}
	return nil
}

func (b *BadgerBackend) Delete(_ context.Context, guildID string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerGuildPrefix + guildID))
	})
	if err != nil {
		return fmt.Errorf("delete guild %s: %w", guildID, err)
	}
	return nil
}

// Close closes the database if this backend opened it.
func (b *BadgerBackend) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}
