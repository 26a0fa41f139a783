package storage

import (
	"context"

	"foodcatalog_api/internal/catalog/models"
)

// Store is the durable home of item references and product records. The
// pipeline owns no state across runs; everything it knows between passes
// lives here.
type Store interface {
	// InitSchema creates the catalog schema if this database has none yet.
	// It is transactional and safe to call on every startup.
	InitSchema(ctx context.Context) error

	// FindReferences returns references filtered by source (zero value
	// matches all sources) and status set (nil or empty matches all
	// statuses), ordered by external id.
	FindReferences(ctx context.Context, source models.SourceID, statuses []models.Status) ([]models.ItemReference, error)

	// UpsertReference inserts the reference or updates its status and
	// updated-at. The update never regresses an already-processed reference
	// back to new, so re-discovery of a known item is a no-op.
	UpsertReference(ctx context.Context, ref models.ItemReference) error

	// UpsertRecord inserts the record or overwrites its descriptive and
	// nutritional fields, preserving created-at.
	UpsertRecord(ctx context.Context, rec models.ProductRecord) error

	Close() error
}
