package perekrestok

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"foodcatalog_api/config"
	"foodcatalog_api/internal/catalog/models"
	"foodcatalog_api/internal/catalog/parse"
	"foodcatalog_api/internal/catalog/source"
	"foodcatalog_api/pkg/logger"
	"foodcatalog_api/pkg/progress"
)

// Source imports the Perekrestok grocery catalog.
type Source struct {
	client   *client
	catalogs []string
	log      logger.Logger
}

func New(cfg config.PerekrestokConfig, log logger.Logger) *Source {
	log = log.WithPrefix("[perekrestok]")
	c := &client{
		siteURL:    cfg.SiteURL,
		apiURL:     cfg.APIURL,
		regionID:   cfg.RegionID,
		httpClient: &http.Client{Timeout: requestTimeout},
		gate:       source.NewGate(cfg.MaxInFlight, cfg.RequestsPerSecond),
		log:        log,
		reacquire:  cfg.Reacquire(),
		acquireToken: func(context.Context) (string, error) {
			return cfg.Token, nil
		},
	}
	return &Source{
		client:   c,
		catalogs: dedupe(cfg.Catalogs),
		log:      log,
	}
}

func (s *Source) ID() models.SourceID {
	return models.SourcePerekrestok
}

// category is one catalog category after its first page has been probed.
type category struct {
	slug     string
	pages    int
	firstIDs []int64
}

// Discover walks every configured category. Page one of each category is
// probed first to learn the total item count and the page size; the
// remaining pages are then fetched concurrently through the network gate.
// A category or page that fails contributes nothing and does not stop the
// rest; only cancellation aborts the pass.
func (s *Source) Discover(ctx context.Context, emit source.EmitFunc, sink progress.Sink) error {
	categories := make([]category, len(s.catalogs))

	probes, probeCtx := errgroup.WithContext(ctx)
	for i, slug := range s.catalogs {
		i, slug := i, slug
		probes.Go(func() error {
			page, err := s.client.categoryPage(probeCtx, slug, 1)
			if err != nil {
				if canceled(probeCtx, err) {
					return err
				}
				s.log.Errorf("discovery failed: category=%s page=1: %v", slug, err)
				return nil
			}
			if len(page.ids) == 0 {
				s.log.Errorf("discovery skipped: category=%s has an empty first page", slug)
				return nil
			}
			categories[i] = category{
				slug:     slug,
				pages:    pageCount(page.count, len(page.ids)),
				firstIDs: page.ids,
			}
			return nil
		})
	}
	if err := probes.Wait(); err != nil {
		return err
	}

	var totalPages int
	for _, cat := range categories {
		totalPages += cat.pages
	}
	if totalPages == 0 {
		sink.Report(1)
		return nil
	}

	mono := progress.NewMonotonic(sink)
	var fetchedPages atomic.Int64
	report := func() {
		mono.Report(float64(fetchedPages.Add(1)) / float64(totalPages))
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, cat := range categories {
		if cat.pages == 0 {
			continue
		}
		cat := cat
		g.Go(func() error {
			defer report()
			return s.emitIDs(ctx, emit, cat.slug, cat.firstIDs)
		})
		for page := 2; page <= cat.pages; page++ {
			page := page
			g.Go(func() error {
				defer report()
				listing, err := s.client.categoryPage(ctx, cat.slug, page)
				if err != nil {
					if canceled(ctx, err) {
						return err
					}
					s.log.Errorf("discovery failed: category=%s page=%d: %v", cat.slug, page, err)
					return nil
				}
				return s.emitIDs(ctx, emit, cat.slug, listing.ids)
			})
		}
	}
	return g.Wait()
}

func (s *Source) emitIDs(ctx context.Context, emit source.EmitFunc, slug string, ids []int64) error {
	for _, id := range ids {
		if err := emit(ctx, models.NewItemReference(models.SourcePerekrestok, id)); err != nil {
			if canceled(ctx, err) {
				return err
			}
			s.log.Errorf("discovery failed: category=%s external_id=%d: %v", slug, id, err)
		}
	}
	return nil
}

// FetchProduct fetches one item and normalizes it. Items without a
// nutrition-facts group yield (nil, nil).
func (s *Source) FetchProduct(ctx context.Context, externalID int64) (*models.ProductRecord, error) {
	data, err := s.client.product(ctx, externalID)
	if err != nil {
		return nil, err
	}

	id := data.ProductID
	if id == 0 {
		id = externalID
	}
	return parse.Normalize(models.SourcePerekrestok, id, data.rawProduct())
}

// pageCount is ceil(total / pageSize).
func pageCount(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func dedupe(slugs []string) []string {
	seen := make(map[string]struct{}, len(slugs))
	var out []string
	for _, slug := range slugs {
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	return out
}
