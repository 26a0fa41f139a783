package importer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"foodcatalog_api/internal/catalog/models"
	"foodcatalog_api/internal/catalog/source"
	"foodcatalog_api/internal/catalog/storage"
	"foodcatalog_api/metrics"
	"foodcatalog_api/pkg/logger"
	"foodcatalog_api/pkg/progress"
)

// workerCount bounds the per-source import workers. The source's network
// gate caps actual in-flight requests; the workers only bound how many
// items are being normalized and persisted at once.
const workerCount = 10

// Importer runs the two whole-catalog passes: reference discovery and
// product import. Both are idempotent and both isolate per-item failures;
// only cancellation aborts a pass.
type Importer struct {
	sources []source.Source
	store   storage.Store
	log     logger.Logger
}

func New(sources []source.Source, store storage.Store, log logger.Logger) *Importer {
	return &Importer{sources: sources, store: store, log: log}
}

// DiscoverReferences asks every source to enumerate its catalog and upserts
// each emitted reference with status new. The store's upsert guard keeps
// re-discovered items from regressing. Progress is the equally weighted mean
// of each source's own fraction, regardless of catalog size.
func (im *Importer) DiscoverReferences(ctx context.Context, sink progress.Sink) error {
	mean := progress.NewMean(sink, len(im.sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range im.sources {
		i, src := i, src
		g.Go(func() error {
			emit := func(ctx context.Context, ref models.ItemReference) error {
				if err := im.store.UpsertReference(ctx, ref); err != nil {
					return err
				}
				metrics.RecordDiscovered(string(ref.Source))
				return nil
			}
			return src.Discover(ctx, emit, mean.Child(i))
		})
	}
	return g.Wait()
}

// ImportProducts fetches, normalizes and persists every reference in the
// snapshot loaded up front. onlyNewAndError restricts the snapshot to
// references that still need a first import or a retry; references created
// after the snapshot are left for the next run. Progress is the global
// completed fraction across all sources; success, skip and error all count.
func (im *Importer) ImportProducts(ctx context.Context, sink progress.Sink, onlyNewAndError bool) error {
	var statuses []models.Status
	if onlyNewAndError {
		statuses = []models.Status{models.StatusNew, models.StatusError}
	}

	refs, err := im.store.FindReferences(ctx, "", statuses)
	if err != nil {
		return err
	}

	// references of sources not registered with this run cannot be fetched;
	// counting them would keep progress from ever reaching 1.0
	registered := make(map[models.SourceID]bool, len(im.sources))
	for _, src := range im.sources {
		registered[src.ID()] = true
	}

	bySource := make(map[models.SourceID][]models.ItemReference)
	var total, unregistered int
	for _, ref := range refs {
		if !registered[ref.Source] {
			unregistered++
			continue
		}
		bySource[ref.Source] = append(bySource[ref.Source], ref)
		total++
	}
	if unregistered > 0 {
		im.log.Errorf("ignoring %d references of unregistered sources", unregistered)
	}

	im.log.Log("importing %d references", total)
	if total == 0 {
		sink.Report(1)
		return nil
	}

	// the increment is atomic but delivery is not; the guard keeps a slow
	// worker's stale fraction from arriving after a larger one
	mono := progress.NewMonotonic(sink)
	var completed atomic.Int64
	report := func() {
		mono.Report(float64(completed.Add(1)) / float64(total))
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range im.sources {
		src := src
		queue := bySource[src.ID()]
		if len(queue) == 0 {
			continue
		}

		tasks := make(chan models.ItemReference)
		g.Go(func() error {
			defer close(tasks)
			for _, ref := range queue {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case tasks <- ref:
				}
			}
			return nil
		})

		for w := 0; w < workerCount; w++ {
			g.Go(func() error {
				for ref := range tasks {
					if err := im.importOne(ctx, src, ref); err != nil {
						return err
					}
					report()
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// importOne resolves exactly one outcome for the reference: imported,
// skipped or error. Cancellation is the only error that escapes; everything
// else is recorded on the reference and the run moves on.
func (im *Importer) importOne(ctx context.Context, src source.Source, ref models.ItemReference) error {
	started := time.Now()
	rec, err := src.FetchProduct(ctx, ref.ExternalID)
	metrics.ObserveFetch(string(src.ID()), time.Since(started))

	switch {
	case err != nil:
		if canceled(ctx, err) {
			return err
		}
		im.log.Errorf("import failed: source=%s external_id=%d: %v", ref.Source, ref.ExternalID, err)
		ref.Status = models.StatusError
	case rec == nil:
		ref.Status = models.StatusSkipped
	default:
		if err := im.store.UpsertRecord(ctx, *rec); err != nil {
			if canceled(ctx, err) {
				return err
			}
			im.log.Errorf("persisting record failed: source=%s external_id=%d: %v", ref.Source, ref.ExternalID, err)
			ref.Status = models.StatusError
		} else {
			ref.Status = models.StatusImported
		}
	}
	ref.UpdatedAt = time.Now().UTC()

	metrics.RecordOutcome(string(ref.Source), string(ref.Status))
	if err := im.store.UpsertReference(ctx, ref); err != nil {
		if canceled(ctx, err) {
			return err
		}
		im.log.Errorf("updating status failed: source=%s external_id=%d: %v", ref.Source, ref.ExternalID, err)
	}
	return nil
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
