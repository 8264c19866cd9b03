// Package prefs persists the user's preferred sources and categories in a
// key-value store. Each list is stored as a JSON array under its own key.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RobinCoderZhao/newsdesk/internal/news"
)

// Storage keys.
const (
	KeySources    = "preferredSources"
	KeyCategories = "preferredCategories"
)

// ErrMalformedPreferences is returned when a stored value cannot be decoded.
var ErrMalformedPreferences = errors.New("malformed stored preferences")

// Reader returns a snapshot of the stored preferences.
type Reader interface {
	Load(ctx context.Context) (news.Preferences, error)
}

// Store reads and writes Preferences through a KV.
type Store struct {
	kv KV
}

// NewStore creates a Store backed by kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load reads both lists. Missing keys are empty lists.
func (s *Store) Load(ctx context.Context) (news.Preferences, error) {
	var p news.Preferences
	if err := s.read(ctx, KeyCategories, &p.PreferredCategories); err != nil {
		return news.Preferences{}, err
	}
	if err := s.read(ctx, KeySources, &p.PreferredSources); err != nil {
		return news.Preferences{}, err
	}
	return p, nil
}

// Save validates p and writes both lists.
func (s *Store) Save(ctx context.Context, p news.Preferences) error {
	for _, src := range p.PreferredSources {
		if !src.Valid() {
			return fmt.Errorf("unknown source %q", src)
		}
	}
	for _, c := range p.PreferredCategories {
		if !c.Valid() {
			return fmt.Errorf("unknown category %q", c)
		}
	}

	sources, err := encode(KeySources, nonNil(p.PreferredSources))
	if err != nil {
		return err
	}
	categories, err := encode(KeyCategories, nonNil(p.PreferredCategories))
	if err != nil {
		return err
	}

	// Both lists are written together or not at all.
	if err := s.kv.SetMany(ctx, map[string]string{
		KeySources:    sources,
		KeyCategories: categories,
	}); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string, out any) error {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		raw = "[]"
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPreferences, key, err)
	}
	return nil
}

func encode(key string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}
	return string(data), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
