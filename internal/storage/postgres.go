package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/huandu/go-sqlbuilder"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type PostgresConnection struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SslMode  string
}

func (pc PostgresConnection) dsn() string {
	sslMode := pc.SslMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		pc.Host,
		pc.Port,
		pc.Database,
		pc.Username,
		pc.Password,
		sslMode)
}

func OpenPostgres(ctx context.Context, pc PostgresConnection) (*sql.DB, error) {
	slog.InfoContext(ctx, "connecting to database", "database", pc.Database, "host", pc.Host, "port", pc.Port)

	db, err := sql.Open("postgres", pc.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	return db, nil
}

// PostgresStore keeps one row per record, the json envelope in a jsonb
// column.
type PostgresStore[T ValidatingSpec] struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

func NewPostgresStore[T ValidatingSpec](db *sql.DB, table string) (*PostgresStore[T], error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	return &PostgresStore[T]{
		db:    db,
		table: table,
		now:   time.Now,
	}, nil
}

func (s *PostgresStore[T]) migrations() *migrate.MemoryMigrationSource {
	return &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: fmt.Sprintf("0001_create_%s", s.table),
				Up: []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table)},
				Down: []string{fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table)},
			},
		},
	}
}

// Migrate creates or upgrades the table. Migration history is kept in
// <table>_migrations so several stores can share one database.
func (s *PostgresStore[T]) Migrate(ctx context.Context) error {
	set := migrate.MigrationSet{TableName: s.table + "_migrations"}

	n, err := set.ExecContext(ctx, s.db, "postgres", s.migrations(), migrate.Up)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	slog.InfoContext(ctx, "applied migrations", "table", s.table, "count", n)
	return nil
}

func (s *PostgresStore[T]) upsertQuery(id string, jsonData []byte) (string, []any) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(s.table).
		Cols("id", "version", "data", "updated_at").
		Values(id, assetVersion, string(jsonData), s.now().UTC())
	ib.SQL("ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at")
	return ib.Build()
}

func (s *PostgresStore[T]) selectQuery(id string) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("data").From(s.table).Where(sb.Equal("id", id))
	return sb.Build()
}

func (s *PostgresStore[T]) deleteQuery(id string) (string, []any) {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(s.table).Where(db.Equal("id", id))
	return db.Build()
}

func (s *PostgresStore[T]) Save(ctx context.Context, id string, o T) error {
	if err := validateId(id); err != nil {
		return err
	}

	jsonData, err := encodeAsset(id, o)
	if err != nil {
		return err
	}

	query, args := s.upsertQuery(id, jsonData)
	_, err = s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upserting %s: %w", id, err)
	}

	return nil
}

func (s *PostgresStore[T]) Load(ctx context.Context, id string) (T, error) {
	var zero T

	query, args := s.selectQuery(id)
	row := s.db.QueryRowContext(ctx, query, args...)

	var jsonData []byte
	err := row.Scan(&jsonData)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return zero, ErrNotFound
	case err != nil:
		return zero, fmt.Errorf("scanning row: %w", err)
	}

	return decodeAsset[T](id, jsonData)
}

func (s *PostgresStore[T]) Delete(ctx context.Context, id string) error {
	query, args := s.deleteQuery(id)
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", id, err)
	}
	return nil
}
