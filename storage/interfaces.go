package storage

import (
	"context"
	"errors"

	"mallcatalog/models"
)

// ErrConflict is returned by Save when the catalog changed since the given revision was loaded
var ErrConflict = errors.New("catalog changed since it was loaded")

// CatalogStore persists the whole catalog under an optimistic revision.
// Load returns the catalog and its revision; Save writes all-or-nothing and returns the new
// revision, failing with ErrConflict when the stored revision is no longer the given one.
type CatalogStore interface {
	Load(ctx context.Context) (*models.Catalog, string, error)
	Save(ctx context.Context, catalog *models.Catalog, revision string) (string, error)
	Close() error
}

// RawStorage keeps the unnormalized records of a run for later inspection
type RawStorage interface {
	SaveRaw(mallID string, records []models.RawRecord) (string, error)
}
