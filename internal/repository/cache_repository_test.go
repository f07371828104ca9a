package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "scheduling", nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "batch_draft:d1", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "batch_draft:d1", map[string]string{"id": "d1"}, time.Minute))
	require.NoError(t, repo.Delete(ctx, "batch_draft:d1"))
	require.NoError(t, repo.Close())
}

func TestCacheRepositoryNamespacesKeys(t *testing.T) {
	assert.Equal(t, "scheduling:batch_draft:d1", NewCacheRepository(nil, "scheduling", nil).key("batch_draft:d1"))
	assert.Equal(t, "batch_draft:d1", NewCacheRepository(nil, "", nil).key("batch_draft:d1"))
}
