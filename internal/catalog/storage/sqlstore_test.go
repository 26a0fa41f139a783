package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"foodcatalog_api/config"
	"foodcatalog_api/internal/catalog/models"
	"foodcatalog_api/pkg/dbconnect/sqlite"
	"foodcatalog_api/pkg/logger"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := sqlite.NewSqliteConnector(config.SQLiteConfig{Path: path}).Connect()
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db, DriverSQLite, logger.NewLogger(os.Stdout, "[test]"))
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return store
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	// second call must be a no-op, not a failure
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("second InitSchema: %v", err)
	}

	ref := models.NewItemReference(models.SourcePerekrestok, 1)
	if err := store.UpsertReference(context.Background(), ref); err != nil {
		t.Fatalf("UpsertReference after re-init: %v", err)
	}
}

func TestUpsertReferenceDoesNotRegressStatus(t *testing.T) {
	ctx := context.Background()

	for _, prior := range []models.Status{models.StatusImported, models.StatusError, models.StatusSkipped} {
		t.Run(string(prior), func(t *testing.T) {
			store := newTestStore(t)

			ref := models.NewItemReference(models.SourcePerekrestok, 42)
			if err := store.UpsertReference(ctx, ref); err != nil {
				t.Fatal(err)
			}

			ref.Status = prior
			ref.UpdatedAt = time.Now().UTC()
			if err := store.UpsertReference(ctx, ref); err != nil {
				t.Fatal(err)
			}

			// re-discovery emits the same key with status new again
			rediscovered := models.NewItemReference(models.SourcePerekrestok, 42)
			if err := store.UpsertReference(ctx, rediscovered); err != nil {
				t.Fatal(err)
			}

			refs, err := store.FindReferences(ctx, models.SourcePerekrestok, nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(refs) != 1 {
				t.Fatalf("got %d references, want 1", len(refs))
			}
			if refs[0].Status != prior {
				t.Errorf("status = %s, want %s (no regression to new)", refs[0].Status, prior)
			}
		})
	}
}

func TestUpsertReferenceUpdatesProcessedStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ref := models.NewItemReference(models.SourcePerekrestok, 7)
	if err := store.UpsertReference(ctx, ref); err != nil {
		t.Fatal(err)
	}

	ref.Status = models.StatusError
	ref.UpdatedAt = ref.UpdatedAt.Add(time.Minute)
	if err := store.UpsertReference(ctx, ref); err != nil {
		t.Fatal(err)
	}

	ref.Status = models.StatusImported
	ref.UpdatedAt = ref.UpdatedAt.Add(time.Minute)
	if err := store.UpsertReference(ctx, ref); err != nil {
		t.Fatal(err)
	}

	refs, err := store.FindReferences(ctx, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].Status != models.StatusImported {
		t.Fatalf("got %+v, want one imported reference", refs)
	}
	if !refs[0].UpdatedAt.After(refs[0].CreatedAt) {
		t.Errorf("updated_at %v not after created_at %v", refs[0].UpdatedAt, refs[0].CreatedAt)
	}
}

func TestFindReferencesFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, seed := range []struct {
		id     int64
		status models.Status
	}{
		{30, models.StatusImported},
		{10, models.StatusNew},
		{20, models.StatusError},
		{40, models.StatusSkipped},
	} {
		ref := models.NewItemReference(models.SourcePerekrestok, seed.id)
		if err := store.UpsertReference(ctx, ref); err != nil {
			t.Fatal(err)
		}
		if seed.status != models.StatusNew {
			ref.Status = seed.status
			if err := store.UpsertReference(ctx, ref); err != nil {
				t.Fatal(err)
			}
		}
	}

	refs, err := store.FindReferences(ctx, "", []models.Status{models.StatusNew, models.StatusError})
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d references, want 2", len(refs))
	}
	if refs[0].ExternalID != 10 || refs[1].ExternalID != 20 {
		t.Errorf("order = [%d %d], want [10 20]", refs[0].ExternalID, refs[1].ExternalID)
	}

	all, err := store.FindReferences(ctx, models.SourcePerekrestok, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("got %d references for source filter, want 4", len(all))
	}

	none, err := store.FindReferences(ctx, models.SourceID("other"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("got %d references for unknown source, want 0", len(none))
	}
}

func TestUpsertRecordOverwritesButKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec := models.ProductRecord{
		Source:            models.SourcePerekrestok,
		ExternalID:        125637,
		Category:          "Молоко, сыр, яйца",
		Name:              "Молоко 1 л",
		URL:               "https://example.com/p/125637",
		VolumeMilliliters: decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		PriceUnits:        decimal.RequireFromString("89.90"),
		EnergyKcal:        decimal.NewNullDecimal(decimal.NewFromInt(64)),
		CreatedAt:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.UpsertRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}

	update := rec
	update.Name = "Молоко отборное 1 л"
	update.PriceUnits = decimal.RequireFromString("95.50")
	update.CreatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	update.UpdatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := store.UpsertRecord(ctx, update); err != nil {
		t.Fatal(err)
	}

	var row struct {
		Name      string          `db:"name"`
		Price     decimal.Decimal `db:"price"`
		CreatedAt string          `db:"created_at"`
		UpdatedAt string          `db:"updated_at"`
		Count     int             `db:"cnt"`
	}
	err := store.db.Get(&row, store.db.Rebind(`
SELECT name, price, created_at, updated_at,
  (SELECT COUNT(*) FROM products) AS cnt
FROM products WHERE source_id = ? AND external_id = ?`),
		string(models.SourcePerekrestok), int64(125637))
	if err != nil {
		t.Fatal(err)
	}

	if row.Count != 1 {
		t.Errorf("got %d product rows, want 1", row.Count)
	}
	if row.Name != update.Name {
		t.Errorf("name = %q, want %q", row.Name, update.Name)
	}
	if !row.Price.Equal(update.PriceUnits) {
		t.Errorf("price = %s, want %s", row.Price, update.PriceUnits)
	}
	if row.CreatedAt != rec.CreatedAt.Format(timeFormat) {
		t.Errorf("created_at = %q, want original %q", row.CreatedAt, rec.CreatedAt.Format(timeFormat))
	}
	if row.UpdatedAt != update.UpdatedAt.Format(timeFormat) {
		t.Errorf("updated_at = %q, want %q", row.UpdatedAt, update.UpdatedAt.Format(timeFormat))
	}
}
