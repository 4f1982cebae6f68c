package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// DB is satisfied by both *sqlx.DB and *sqlx.Tx.
type DB interface {
	sqlx.ExtContext

	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}
