package repository

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-identity"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// OpenDB opens a sqlite-backed bun database for the given DSN.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateSchema creates the identity tables when they do not exist. The
// (external_id, login_provider) uniqueness constraint comes from the
// model tags and is load-bearing: the reconciler relies on it to
// resolve concurrent first-time logins.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*identity.UserProfile)(nil),
		(*identity.Credential)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}
