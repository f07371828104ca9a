package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/batch-slot-api/internal/models"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
)

type cacheRepoFake struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newCacheRepoFake() *cacheRepoFake {
	return &cacheRepoFake{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *cacheRepoFake) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *cacheRepoFake) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = raw
	f.ttls[key] = ttl
	return nil
}

func (f *cacheRepoFake) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

func sampleDraft(expiresAt time.Time) *models.BatchDraft {
	rng := hourRange(9)
	return &models.BatchDraft{
		ID:          "draft-1",
		BaseVersion: 3,
		Batch:       committedBatch("A", "math", "T", []string{"P"}, hourSlot(models.Monday, 9)),
		Days:        []models.DayChoice{{Day: models.Monday, Range: &rng}, {Day: models.Friday}},
		ExpiresAt:   expiresAt,
	}
}

func TestCacheDraftStoreRoundTrip(t *testing.T) {
	repo := newCacheRepoFake()
	store := NewCacheDraftStore(NewCacheService(repo, nil, time.Minute, zap.NewNop()))
	now := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	draft := sampleDraft(now.Add(30 * time.Minute))
	require.NoError(t, store.Save(ctx, draft))
	assert.Equal(t, 30*time.Minute, repo.ttls["batch_draft:draft-1"])

	loaded, err := store.Get(ctx, "draft-1")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.BaseVersion)
	assert.Equal(t, "T", loaded.Batch.Teacher())
	require.Len(t, loaded.Days, 2)
	require.NotNil(t, loaded.Days[0].Range)
	assert.Equal(t, hourRange(9), *loaded.Days[0].Range)
	assert.Nil(t, loaded.Days[1].Range)
	assert.Equal(t, draft.Batch.Slots(), loaded.Batch.Slots())

	require.NoError(t, store.Delete(ctx, "draft-1"))
	_, err = store.Get(ctx, "draft-1")
	assert.Equal(t, "NOT_FOUND", appErrorOf(t, err).Code)
}

func TestCacheDraftStoreRejectsExpiredSave(t *testing.T) {
	store := NewCacheDraftStore(NewCacheService(newCacheRepoFake(), nil, time.Minute, zap.NewNop()))
	err := store.Save(context.Background(), sampleDraft(time.Now().Add(-time.Second)))
	assert.Equal(t, "NOT_FOUND", appErrorOf(t, err).Code)
}

func TestMemoryDraftStoreCopiesAndExpires(t *testing.T) {
	store := NewMemoryDraftStore()
	now := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	draft := sampleDraft(now.Add(time.Minute))
	require.NoError(t, store.Save(ctx, draft))
	draft.Batch.ParticipantIDs[0] = "mutated"

	loaded, err := store.Get(ctx, "draft-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"P"}, loaded.Batch.ParticipantIDs)
	loaded.Days[0].Range.Start = 0

	again, err := store.Get(ctx, "draft-1")
	require.NoError(t, err)
	assert.Equal(t, hourRange(9), *again.Days[0].Range)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "draft-1")
	assert.Equal(t, "NOT_FOUND", appErrorOf(t, err).Code)
}
