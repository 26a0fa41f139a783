package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"foodcatalog_api/internal/catalog/models"
	"foodcatalog_api/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const schemaVersion = 1

// Timestamps are stored as RFC3339 UTC text so the same queries run
// unchanged on both drivers and lexical order matches chronological order.
const timeFormat = time.RFC3339Nano

const catalogSchema = `
CREATE TABLE catalog_settings (
  key TEXT NOT NULL,
  value TEXT,
  PRIMARY KEY (key)
);

CREATE TABLE item_refs (
  source_id TEXT NOT NULL,
  external_id BIGINT NOT NULL,
  status TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (source_id, external_id)
);

CREATE TABLE products (
  source_id TEXT NOT NULL,
  external_id BIGINT NOT NULL,
  category TEXT,
  name TEXT,
  url TEXT,
  weight_grams NUMERIC,
  volume_ml NUMERIC,
  price NUMERIC NOT NULL,
  energy_kcal NUMERIC,
  proteins_g NUMERIC,
  fats_g NUMERIC,
  carbs_g NUMERIC,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (source_id, external_id)
);
`

// SQLStore implements Store on top of sqlx for both supported drivers.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	log    logger.Logger
}

func New(db *sqlx.DB, driver string, log logger.Logger) *SQLStore {
	return &SQLStore{db: db, driver: driver, log: log.WithPrefix("[store]")}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) InitSchema(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	version, err := s.currentVersion(ctx, tx)
	if err != nil {
		return err
	}
	if version >= schemaVersion {
		s.log.Log("schema is up to date (version %d)", version)
		return nil
	}

	if _, err := tx.ExecContext(ctx, catalogSchema); err != nil {
		return fmt.Errorf("creating catalog schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO catalog_settings (key, value) VALUES (?, ?)`),
		"schema_version", fmt.Sprint(schemaVersion)); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog schema: %w", err)
	}
	s.log.Log("initialized schema at version %d", schemaVersion)
	return nil
}

func (s *SQLStore) currentVersion(ctx context.Context, tx *sqlx.Tx) (int, error) {
	existsQuery := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'catalog_settings'`
	if s.driver == DriverPostgres {
		existsQuery = `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'catalog_settings'`
	}

	var exists int
	if err := tx.GetContext(ctx, &exists, existsQuery); err != nil {
		return 0, fmt.Errorf("checking for settings table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err := tx.GetContext(ctx, &version,
		tx.Rebind(`SELECT CAST(value AS INTEGER) FROM catalog_settings WHERE key = ?`),
		"schema_version")
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

type refRow struct {
	SourceID   string `db:"source_id"`
	ExternalID int64  `db:"external_id"`
	Status     string `db:"status"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

func (s *SQLStore) FindReferences(ctx context.Context, source models.SourceID, statuses []models.Status) ([]models.ItemReference, error) {
	query := `SELECT source_id, external_id, status, created_at, updated_at FROM item_refs`
	var conds []string
	var args []interface{}

	if source != "" {
		conds = append(conds, `source_id = ?`)
		args = append(args, string(source))
	}
	if len(statuses) > 0 {
		cond, inArgs, err := sqlx.In(`status IN (?)`, statuses)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
		args = append(args, inArgs...)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY external_id`

	var rows []refRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("finding references: %w", err)
	}

	refs := make([]models.ItemReference, 0, len(rows))
	for _, row := range rows {
		ref, err := row.toReference()
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (row refRow) toReference() (models.ItemReference, error) {
	created, err := time.Parse(timeFormat, row.CreatedAt)
	if err != nil {
		return models.ItemReference{}, fmt.Errorf("parsing created_at %q: %w", row.CreatedAt, err)
	}
	updated, err := time.Parse(timeFormat, row.UpdatedAt)
	if err != nil {
		return models.ItemReference{}, fmt.Errorf("parsing updated_at %q: %w", row.UpdatedAt, err)
	}
	return models.ItemReference{
		Source:     models.SourceID(row.SourceID),
		ExternalID: row.ExternalID,
		Status:     models.Status(row.Status),
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

// UpsertReference keeps exactly one row per (source, external id). The
// conflict branch touches only status and updated_at, and its guard refuses
// to move an already-processed reference back to new, so a later discovery
// pass cannot regress import outcomes.
func (s *SQLStore) UpsertReference(ctx context.Context, ref models.ItemReference) error {
	query := s.db.Rebind(`
INSERT INTO item_refs (source_id, external_id, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (source_id, external_id) DO UPDATE SET
  status = excluded.status,
  updated_at = excluded.updated_at
WHERE item_refs.status = ? OR excluded.status <> ?`)

	_, err := s.db.ExecContext(ctx, query,
		string(ref.Source),
		ref.ExternalID,
		string(ref.Status),
		ref.CreatedAt.UTC().Format(timeFormat),
		ref.UpdatedAt.UTC().Format(timeFormat),
		string(models.StatusNew),
		string(models.StatusNew),
	)
	if err != nil {
		return fmt.Errorf("upserting reference %s/%d: %w", ref.Source, ref.ExternalID, err)
	}
	return nil
}

func (s *SQLStore) UpsertRecord(ctx context.Context, rec models.ProductRecord) error {
	query := s.db.Rebind(`
INSERT INTO products (source_id, external_id, category, name, url,
  weight_grams, volume_ml, price, energy_kcal, proteins_g, fats_g, carbs_g,
  created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source_id, external_id) DO UPDATE SET
  category = excluded.category,
  name = excluded.name,
  url = excluded.url,
  weight_grams = excluded.weight_grams,
  volume_ml = excluded.volume_ml,
  price = excluded.price,
  energy_kcal = excluded.energy_kcal,
  proteins_g = excluded.proteins_g,
  fats_g = excluded.fats_g,
  carbs_g = excluded.carbs_g,
  updated_at = excluded.updated_at`)

	_, err := s.db.ExecContext(ctx, query,
		string(rec.Source),
		rec.ExternalID,
		rec.Category,
		rec.Name,
		rec.URL,
		nullDecimalArg(rec.WeightGrams),
		nullDecimalArg(rec.VolumeMilliliters),
		rec.PriceUnits.String(),
		nullDecimalArg(rec.EnergyKcal),
		nullDecimalArg(rec.ProteinsGrams),
		nullDecimalArg(rec.FatsGrams),
		nullDecimalArg(rec.CarbohydratesGrams),
		rec.CreatedAt.UTC().Format(timeFormat),
		rec.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("upserting record %s/%d: %w", rec.Source, rec.ExternalID, err)
	}
	return nil
}

func nullDecimalArg(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
