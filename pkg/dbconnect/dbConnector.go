package dbconnect

import "github.com/jmoiron/sqlx"

type DbConnector interface {
	Connect() (*sqlx.DB, error)
}
