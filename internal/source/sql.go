package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"notionsync/internal/record"
)

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite3"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type SQLOptions struct {
	Driver  string
	DSN     string
	Dialect string
	Query   string
	Table   string
}

// SQLSource reads rows through database/sql. It serves postgresql, mysql
// and sqlite; only the driver, DSN and placeholder style differ.
type SQLSource struct {
	db      *sql.DB
	dialect string
	query   string
	table   string
}

func OpenSQL(ctx context.Context, opts SQLOptions) (*SQLSource, error) {
	if opts.DSN == "" {
		return nil, errors.New("missing database dsn")
	}
	if opts.Query == "" {
		return nil, errors.New("missing source query")
	}
	if opts.Table != "" && !identifierPattern.MatchString(opts.Table) {
		return nil, fmt.Errorf("invalid table name %q", opts.Table)
	}
	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Dialect, err)
	}
	// One connection, one statement at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", opts.Dialect, err)
	}
	return &SQLSource{db: db, dialect: opts.Dialect, query: opts.Query, table: opts.Table}, nil
}

func (s *SQLSource) DB() *sql.DB {
	return s.db
}

func (s *SQLSource) Name() string {
	return s.dialect
}

func (s *SQLSource) Dialect() string {
	return s.dialect
}

func (s *SQLSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLSource) Fetch(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("run source query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []record.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		raw := make(map[string]any, len(cols))
		for i, col := range cols {
			raw[col] = values[i]
		}
		records = append(records, record.New(raw))
	}
	return records, rows.Err()
}

func (s *SQLSource) MarkSynced(ctx context.Context, uid string) error {
	if s.table == "" {
		return errors.New("no source table configured for sync marking")
	}
	// uid arrives trimmed; padded CHAR keys must still match.
	query := fmt.Sprintf("UPDATE %s SET sync_status = 'synced' WHERE TRIM(uid) = ?", s.table)
	if s.dialect == DialectPostgres {
		query = fmt.Sprintf("UPDATE %s SET sync_status = 'synced' WHERE TRIM(uid::text) = $1", s.table)
	}
	res, err := s.db.ExecContext(ctx, query, uid)
	if err != nil {
		return fmt.Errorf("mark %s synced: %w", uid, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark %s synced: no matching row", uid)
	}
	return nil
}

func PostgresDSN(host string, port int, name, user, password, sslmode string) string {
	if host == "" {
		host = "localhost"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + name,
	}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	if sslmode != "" {
		u.RawQuery = url.Values{"sslmode": []string{sslmode}}.Encode()
	}
	return u.String()
}

func MySQLDSN(host string, port int, name, user, password string) string {
	if host == "" {
		host = "localhost"
	}
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}
