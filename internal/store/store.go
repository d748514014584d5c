// Package store persists converted contact records in PostgreSQL.
//
// Records are bulk loaded with the COPY protocol; every row carries the run id
// of the conversion that produced it so runs can be compared or replaced.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/vcf2csv/internal/core"
	"github.com/JonMunkholm/vcf2csv/internal/logging"
)

// DBTX is the subset of pgx used by the store.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// ErrInvalidTable is returned for a table name that is not a plain identifier.
var ErrInvalidTable = errors.New("invalid table name")

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Columns lists the stored columns in COPY order.
var Columns = []string{
	"run_id",
	"name",
	"street",
	"extended",
	"city",
	"region",
	"code",
	"country",
	"addr1",
	"addr2",
	"created_at",
}

// Store writes flat records to one table.
type Store struct {
	db    DBTX
	table string
}

// New returns a store writing to table.
func New(db DBTX, table string) (*Store, error) {
	if !tableNameRegex.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &Store{db: db, table: table}, nil
}

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string, maxConns int) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ident := pgx.Identifier{s.table}.Sanitize()
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id         BIGSERIAL PRIMARY KEY,
	run_id     UUID        NOT NULL,
	name       TEXT        NOT NULL,
	street     TEXT        NOT NULL DEFAULT '',
	extended   TEXT        NOT NULL DEFAULT '',
	city       TEXT        NOT NULL DEFAULT '',
	region     TEXT        NOT NULL DEFAULT '',
	code       TEXT        NOT NULL DEFAULT '',
	country    TEXT        NOT NULL DEFAULT '',
	addr1      TEXT        NOT NULL DEFAULT '',
	addr2      TEXT        NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, ident)

	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Save bulk loads records tagged with runID and returns the rows copied.
func (s *Store) Save(ctx context.Context, runID uuid.UUID, records []*core.FlatRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	id := pgtype.UUID{Bytes: runID, Valid: true}
	now := pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}

	src := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		return []any{
			id,
			r.Name,
			r.Street,
			r.Extended,
			r.City,
			r.Region,
			r.Code,
			r.Country,
			r.Addr1,
			r.Addr2,
			now,
		}, nil
	})

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{s.table}, Columns, src)
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", s.table, err)
	}

	logging.FromContext(ctx).Info("records stored", "table", s.table, "rows", n)
	return n, nil
}
