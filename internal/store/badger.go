// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package store provides BadgerDB-backed persistence for sessions, taste
// profiles, and the menu item catalog, plus an in-memory implementation
// for tests. Session and profile writes enforce optimistic versioning:
// a put commits only when the stored version still matches the caller's
// expectation.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/platefinder/internal/recommend"
)

// Key prefixes for BadgerDB storage
const (
	sessionKeyPrefix = "session:"
	profileKeyPrefix = "profile:"
	itemKeyPrefix    = "item:"
	menuKeyPrefix    = "menu:"
)

// BadgerStore implements the recommendation stores over a shared
// BadgerDB instance.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (or creates) the BadgerDB at path and wraps it in a store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(path string, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}

	return New(db, logger), nil
}

// New wraps an already-open BadgerDB.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(db *badger.DB, logger zerolog.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// GetSession retrieves a session by ID.
func (s *BadgerStore) GetSession(ctx context.Context, id string) (*recommend.RecommendationSession, error) {
	var session recommend.RecommendationSession
	err := s.get(sessionKeyPrefix+id, &session, recommend.ErrSessionNotFound)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// PutSession writes the session under the optimistic version check.
func (s *BadgerStore) PutSession(ctx context.Context, session *recommend.RecommendationSession, expectedVersion uint64) error {
	return s.putVersioned(sessionKeyPrefix+session.ID, expectedVersion, func(newVersion uint64) ([]byte, error) {
		session.Version = newVersion
		return json.Marshal(session)
	})
}

// GetProfile retrieves a taste profile by user ID.
func (s *BadgerStore) GetProfile(ctx context.Context, userID string) (*recommend.UserTasteProfile, error) {
	var profile recommend.UserTasteProfile
	err := s.get(profileKeyPrefix+userID, &profile, recommend.ErrProfileNotFound)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// PutProfile writes the profile under the optimistic version check.
func (s *BadgerStore) PutProfile(ctx context.Context, profile *recommend.UserTasteProfile, expectedVersion uint64) error {
	return s.putVersioned(profileKeyPrefix+profile.UserID, expectedVersion, func(newVersion uint64) ([]byte, error) {
		profile.Version = newVersion
		return json.Marshal(profile)
	})
}

// GetItem retrieves one menu item by ID.
func (s *BadgerStore) GetItem(ctx context.Context, id string) (*recommend.MenuItem, error) {
	var item recommend.MenuItem
	err := s.get(itemKeyPrefix+id, &item, recommend.ErrItemNotFound)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetMenu returns all items for a restaurant, in item-id order.
func (s *BadgerStore) GetMenu(ctx context.Context, restaurantID string) ([]recommend.MenuItem, error) {
	var ids []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(menuKeyPrefix + restaurantID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan menu %s: %w", restaurantID, err)
	}

	items := make([]recommend.MenuItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetItem(ctx, id)
		if err != nil {
			if errors.Is(err, recommend.ErrItemNotFound) {
				continue // mapping outlived the item
			}
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// AllItems returns every stored menu item, for index rebuilds.
func (s *BadgerStore) AllItems(ctx context.Context) ([]recommend.MenuItem, error) {
	var items []recommend.MenuItem

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(itemKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var item recommend.MenuItem
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			})
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	return items, nil
}

// PutItem stores a menu item and its restaurant-menu mapping.
func (s *BadgerStore) PutItem(ctx context.Context, item *recommend.MenuItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(itemKeyPrefix+item.ID), data); err != nil {
			return fmt.Errorf("set item: %w", err)
		}
		menuKey := []byte(menuKeyPrefix + item.RestaurantID + ":" + item.ID)
		if err := txn.Set(menuKey, []byte(item.ID)); err != nil {
			return fmt.Errorf("set menu mapping: %w", err)
		}
		return nil
	})
}

// DeleteItem removes an item and its menu mapping.
func (s *BadgerStore) DeleteItem(ctx context.Context, id string) error {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, recommend.ErrItemNotFound) {
			return nil
		}
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(itemKeyPrefix + id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete item: %w", err)
		}
		menuKey := []byte(menuKeyPrefix + item.RestaurantID + ":" + id)
		if err := txn.Delete(menuKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete menu mapping: %w", err)
		}
		return nil
	})
}

// get loads and unmarshals one record, mapping a missing key to the
// given sentinel.
func (s *BadgerStore) get(key string, out any, notFound error) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

// versionedRecord extracts just the version field from a stored record.
type versionedRecord struct {
	Version uint64 `json:"version"`
}

// putVersioned commits a record only when the stored version equals
// expectedVersion, reading and writing inside one transaction. Badger's
// own conflict detection maps to the same sentinel, so two racing
// writers cannot both win.
func (s *BadgerStore) putVersioned(key string, expectedVersion uint64, marshal func(newVersion uint64) ([]byte, error)) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var current uint64

		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			current = 0
		case err != nil:
			return fmt.Errorf("get %s: %w", key, err)
		default:
			var rec versionedRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			current = rec.Version
		}

		if current != expectedVersion {
			return recommend.ErrConcurrentModification
		}

		data, err := marshal(expectedVersion + 1)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		return txn.Set([]byte(key), data)
	})

	if errors.Is(err, badger.ErrConflict) {
		return recommend.ErrConcurrentModification
	}
	return err
}
