package source

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate creates the tracker table in a development or test database. The
// sync itself never alters the source schema.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	goose.SetTableName("notionsync_schema_migrations")
	return goose.UpContext(ctx, db, "migrations")
}
