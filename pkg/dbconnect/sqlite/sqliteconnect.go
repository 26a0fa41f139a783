package sqlite

import (
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"foodcatalog_api/config"
)

type SqliteDatabase struct {
	config.DbConfig
}

func NewSqliteConnector(dbConfig config.DbConfig) *SqliteDatabase {
	return &SqliteDatabase{DbConfig: dbConfig}
}

func (s *SqliteDatabase) Connect() (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", s.GetConnectionString())
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// WAL keeps concurrent reference upserts from serializing on the file.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}
