package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/infra/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	l, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	return NewStore(l)
}

func TestStoreMissAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	key := assessment.CacheKey("Slack")

	_, err := s.GetAssessment(ctx, key)
	assert.ErrorIs(t, err, assessment.ErrCacheMiss)
	_, err = s.GetEntity(ctx, key)
	assert.ErrorIs(t, err, assessment.ErrCacheMiss)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &assessment.EntityRecord{
		Input:     "Slack",
		Key:       key,
		Entity:    assessment.ResolvedEntity{Product: "Slack", Vendor: "Salesforce", Confidence: 95, ResolvedAt: now},
		Kev:       assessment.KevStatus{State: assessment.KevClear, CheckedAt: now},
		CreatedAt: now,
	}
	require.NoError(t, s.PutEntity(ctx, key, rec))
	got, err := s.GetEntity(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	a := &assessment.Assessment{Input: "Slack", Entity: rec.Entity, Cache: assessment.CacheMeta{Key: key, CreatedAt: now, TTLDays: 7}}
	require.NoError(t, s.PutAssessment(ctx, key, a))
	gotA, err := s.GetAssessment(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Salesforce", gotA.Entity.Vendor)
	assert.True(t, now.Equal(gotA.Cache.CreatedAt))
}

func TestStoreListDeleteClear(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, in := range []string{"Slack", "Zoom", "Notion"} {
		k := assessment.CacheKey(in)
		require.NoError(t, s.PutEntity(ctx, k, &assessment.EntityRecord{Input: in, Key: k}))
		require.NoError(t, s.PutAssessment(ctx, k, &assessment.Assessment{Input: in}))
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.Delete(ctx, assessment.CacheKey("zoom")))
	assert.ErrorIs(t, s.Delete(ctx, assessment.CacheKey("zoom")), assessment.ErrCacheMiss)

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
