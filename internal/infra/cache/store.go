package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/infra/storage"
)

const (
	entityPrefix     = "entities/"
	assessmentPrefix = "assessments/"
)

// Store implements assessment.Cache as JSON documents on a storage.Backend.
// Concurrent writes to the same key are last-write-wins.
type Store struct {
	backend storage.Backend
}

func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

func entityKey(key string) string     { return entityPrefix + key + ".json" }
func assessmentKey(key string) string { return assessmentPrefix + key + ".json" }

func (s *Store) GetEntity(ctx context.Context, key string) (*assessment.EntityRecord, error) {
	var rec assessment.EntityRecord
	if err := s.get(ctx, entityKey(key), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) PutEntity(ctx context.Context, key string, rec *assessment.EntityRecord) error {
	return s.put(ctx, entityKey(key), rec)
}

func (s *Store) GetAssessment(ctx context.Context, key string) (*assessment.Assessment, error) {
	var a assessment.Assessment
	if err := s.get(ctx, assessmentKey(key), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) PutAssessment(ctx context.Context, key string, a *assessment.Assessment) error {
	return s.put(ctx, assessmentKey(key), a)
}

// List returns every readable cached assessment. Corrupt documents are
// skipped with a warning.
func (s *Store) List(ctx context.Context) ([]*assessment.Assessment, error) {
	keys, err := s.backend.List(ctx, assessmentPrefix)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	out := make([]*assessment.Assessment, 0, len(keys))
	for _, k := range keys {
		var a assessment.Assessment
		if err := s.get(ctx, k, &a); err != nil {
			if !errors.Is(err, assessment.ErrCacheMiss) {
				slog.Warn("skip unreadable cache entry", "key", k, "error", err)
			}
			continue
		}
		out = append(out, &a)
	}
	return out, nil
}

// Delete removes both documents stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	found := false
	for _, k := range []string{assessmentKey(key), entityKey(key)} {
		err := s.backend.Delete(ctx, k)
		switch {
		case err == nil:
			found = true
		case errors.Is(err, storage.ErrNotFound):
		default:
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	if !found {
		return assessment.ErrCacheMiss
	}
	return nil
}

// Clear removes every cached document and returns the number of cache keys
// that were dropped.
func (s *Store) Clear(ctx context.Context) (int, error) {
	removed := map[string]struct{}{}
	for _, prefix := range []string{assessmentPrefix, entityPrefix} {
		keys, err := s.backend.List(ctx, prefix)
		if err != nil {
			return len(removed), fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, k := range keys {
			if err := s.backend.Delete(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return len(removed), fmt.Errorf("delete %s: %w", k, err)
			}
			removed[strings.TrimSuffix(path.Base(k), ".json")] = struct{}{}
		}
	}
	return len(removed), nil
}

// Ping reports whether the underlying backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return assessment.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
