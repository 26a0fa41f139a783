package source

import (
	"context"

	"foodcatalog_api/internal/catalog/models"
	"foodcatalog_api/pkg/progress"
)

// EmitFunc receives one discovered item reference. Returning an error stops
// nothing by itself; the source decides whether it is a cancellation (which
// aborts discovery) or an isolated failure.
type EmitFunc func(ctx context.Context, ref models.ItemReference) error

// Source is one external catalog provider. The import orchestration treats
// every implementation uniformly through this contract and never branches on
// the concrete type.
type Source interface {
	// ID is the stable discriminator persisted with every reference and
	// record of this source.
	ID() models.SourceID

	// Discover enumerates all catalog categories and emits every item id it
	// finds, with status new. Failures of single categories or pages are
	// logged and isolated; only cancellation aborts the call. The sink
	// receives this source's own fractional progress.
	Discover(ctx context.Context, emit EmitFunc, sink progress.Sink) error

	// FetchProduct fetches and normalizes one item. A (nil, nil) result
	// means the item does not qualify as a catalog product and should be
	// recorded as skipped.
	FetchProduct(ctx context.Context, externalID int64) (*models.ProductRecord, error)
}
