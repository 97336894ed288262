// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/platefinder/internal/recommend"
)

// MemoryStore is an in-memory implementation of the recommendation
// stores with the same optimistic-versioning contract as BadgerStore.
// Used in tests and single-process development mode. Records are stored
// serialized so callers never share mutable state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	profiles map[string][]byte
	items    map[string][]byte
	menus    map[string][]string // restaurant id -> item ids
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		profiles: make(map[string][]byte),
		items:    make(map[string][]byte),
		menus:    make(map[string][]string),
	}
}

// GetSession retrieves a session by ID.
func (s *MemoryStore) GetSession(ctx context.Context, id string) (*recommend.RecommendationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.sessions[id]
	if !ok {
		return nil, recommend.ErrSessionNotFound
	}
	var session recommend.RecommendationSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// PutSession writes the session under the optimistic version check.
func (s *MemoryStore) PutSession(ctx context.Context, session *recommend.RecommendationSession, expectedVersion uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current uint64
	if data, ok := s.sessions[session.ID]; ok {
		var rec versionedRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		current = rec.Version
	}
	if current != expectedVersion {
		return recommend.ErrConcurrentModification
	}

	session.Version = expectedVersion + 1
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.sessions[session.ID] = data
	return nil
}

// GetProfile retrieves a taste profile by user ID.
func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*recommend.UserTasteProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.profiles[userID]
	if !ok {
		return nil, recommend.ErrProfileNotFound
	}
	var profile recommend.UserTasteProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// PutProfile writes the profile under the optimistic version check.
func (s *MemoryStore) PutProfile(ctx context.Context, profile *recommend.UserTasteProfile, expectedVersion uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current uint64
	if data, ok := s.profiles[profile.UserID]; ok {
		var rec versionedRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		current = rec.Version
	}
	if current != expectedVersion {
		return recommend.ErrConcurrentModification
	}

	profile.Version = expectedVersion + 1
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	s.profiles[profile.UserID] = data
	return nil
}

// GetItem retrieves one menu item by ID.
func (s *MemoryStore) GetItem(ctx context.Context, id string) (*recommend.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.items[id]
	if !ok {
		return nil, recommend.ErrItemNotFound
	}
	var item recommend.MenuItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetMenu returns all items for a restaurant, in item-id order.
func (s *MemoryStore) GetMenu(ctx context.Context, restaurantID string) ([]recommend.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := append([]string(nil), s.menus[restaurantID]...)
	sort.Strings(ids)

	items := make([]recommend.MenuItem, 0, len(ids))
	for _, id := range ids {
		data, ok := s.items[id]
		if !ok {
			continue
		}
		var item recommend.MenuItem
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// AllItems returns every stored menu item, for index rebuilds.
func (s *MemoryStore) AllItems(ctx context.Context) ([]recommend.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]recommend.MenuItem, 0, len(ids))
	for _, id := range ids {
		var item recommend.MenuItem
		if err := json.Unmarshal(s.items[id], &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// PutItem stores a menu item and its restaurant-menu mapping.
func (s *MemoryStore) PutItem(ctx context.Context, item *recommend.MenuItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; !exists {
		s.menus[item.RestaurantID] = append(s.menus[item.RestaurantID], item.ID)
	}
	s.items[item.ID] = data
	return nil
}

// DeleteItem removes an item and its menu mapping. Deleting a missing
// item is a no-op.
func (s *MemoryStore) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.items[id]
	if !ok {
		return nil
	}
	var item recommend.MenuItem
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	delete(s.items, id)

	ids := s.menus[item.RestaurantID]
	for i, existing := range ids {
		if existing == id {
			s.menus[item.RestaurantID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
