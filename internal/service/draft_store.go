package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/batch-slot-api/internal/models"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
)

const draftKeyPrefix = "batch_draft:"

// DraftStore persists batch edit sessions between requests.
type DraftStore interface {
	Get(ctx context.Context, id string) (*models.BatchDraft, error)
	Save(ctx context.Context, draft *models.BatchDraft) error
	Delete(ctx context.Context, id string) error
}

// CacheDraftStore keeps drafts in Redis through the cache service.
type CacheDraftStore struct {
	cache *CacheService
	now   func() time.Time
}

// NewCacheDraftStore constructs a Redis-backed draft store.
func NewCacheDraftStore(cache *CacheService) *CacheDraftStore {
	return &CacheDraftStore{cache: cache, now: time.Now}
}

// Get loads a draft or returns NOT_FOUND when it is missing or expired.
func (s *CacheDraftStore) Get(ctx context.Context, id string) (*models.BatchDraft, error) {
	var draft models.BatchDraft
	hit, err := s.cache.Get(ctx, draftKeyPrefix+id, &draft)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
	}
	if !hit {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found or expired")
	}
	return &draft, nil
}

// Save writes the draft with the remaining lifetime as TTL.
func (s *CacheDraftStore) Save(ctx context.Context, draft *models.BatchDraft) error {
	ttl := draft.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "draft not found or expired")
	}
	if err := s.cache.Set(ctx, draftKeyPrefix+draft.ID, draft, ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save draft")
	}
	return nil
}

// Delete drops a draft.
func (s *CacheDraftStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, draftKeyPrefix+id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete draft")
	}
	return nil
}

// MemoryDraftStore keeps drafts in process memory. Drafts are lost on restart.
type MemoryDraftStore struct {
	mu    sync.RWMutex
	items map[string]models.BatchDraft
	now   func() time.Time
}

// NewMemoryDraftStore constructs an in-memory draft store.
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{items: make(map[string]models.BatchDraft), now: time.Now}
}

// Get returns a copy of the draft.
func (s *MemoryDraftStore) Get(_ context.Context, id string) (*models.BatchDraft, error) {
	s.mu.RLock()
	draft, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found or expired")
	}
	if !s.now().Before(draft.ExpiresAt) {
		s.mu.Lock()
		delete(s.items, id)
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found or expired")
	}
	cp := draft
	cp.Batch = draft.Batch.Clone()
	cp.Days = cloneDays(draft.Days)
	return &cp, nil
}

// Save stores a copy of the draft.
func (s *MemoryDraftStore) Save(_ context.Context, draft *models.BatchDraft) error {
	cp := *draft
	cp.Batch = draft.Batch.Clone()
	cp.Days = cloneDays(draft.Days)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[draft.ID] = cp
	return nil
}

// Delete drops a draft.
func (s *MemoryDraftStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}
