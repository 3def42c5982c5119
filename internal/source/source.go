// Package source reads unsynced tracker rows from the internal database.
package source

import (
	"context"
	"errors"
	"fmt"

	"notionsync/internal/config"
	"notionsync/internal/record"
)

var ErrUnsupportedType = errors.New("unsupported database type")

// Source is one open connection to the internal database.
type Source interface {
	// Fetch runs the configured query and returns every matching row.
	Fetch(ctx context.Context) ([]record.Record, error)
	// MarkSynced flags the row with uid as mirrored to Notion.
	MarkSynced(ctx context.Context, uid string) error
	Name() string
	Close() error
}

// Open connects to the database selected by cfg.Database.Type and verifies
// the connection. Any error here means the run cannot proceed.
func Open(ctx context.Context, cfg config.Config) (Source, error) {
	db := cfg.Database
	var opts SQLOptions
	switch db.Type {
	case config.DBPostgres:
		opts = SQLOptions{
			Driver:  "pgx",
			DSN:     PostgresDSN(db.Host, db.Port, db.Name, db.User, db.Password, db.SSLMode),
			Dialect: DialectPostgres,
			Query:   db.Query,
			Table:   db.Table,
		}
	case config.DBMySQL:
		opts = SQLOptions{
			Driver:  "mysql",
			DSN:     MySQLDSN(db.Host, db.Port, db.Name, db.User, db.Password),
			Dialect: DialectMySQL,
			Query:   db.Query,
			Table:   db.Table,
		}
	case config.DBSQLite:
		opts = SQLOptions{
			Driver:  "sqlite3",
			DSN:     db.SQLitePath,
			Dialect: DialectSQLite,
			Query:   db.Query,
			Table:   db.Table,
		}
	case config.DBMongo:
		uri := db.MongoURI
		if uri == "" {
			uri = MongoURI(db.Host, db.Port, db.Name, db.User, db.Password)
		}
		src, err := OpenMongo(ctx, MongoOptions{
			URI:        uri,
			Database:   db.Name,
			Collection: db.Collection,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, db.Type)
	}

	src, err := OpenSQL(ctx, opts)
	if err != nil {
		return nil, err
	}
	return src, nil
}
