package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

var directoryQueries = map[models.DirectoryKind]string{
	models.DirectoryCourses:  `SELECT id, name FROM courses WHERE id IN (?)`,
	models.DirectoryUsers:    `SELECT id, full_name AS name FROM users WHERE id IN (?)`,
	models.DirectoryLocation: `SELECT id, name FROM locations WHERE id IN (?)`,
}

type directoryEntry struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// DirectoryRepository resolves display names of entities owned by other services.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// Names maps ids to names. Unknown ids are absent from the result.
func (r *DirectoryRepository) Names(ctx context.Context, kind models.DirectoryKind, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	base, ok := directoryQueries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown directory kind %q", kind)
	}
	query, args, err := sqlx.In(base, ids)
	if err != nil {
		return nil, fmt.Errorf("build %s lookup: %w", kind, err)
	}
	var entries []directoryEntry
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lookup %s names: %w", kind, err)
	}
	for _, entry := range entries {
		names[entry.ID] = entry.Name
	}
	return names, nil
}
