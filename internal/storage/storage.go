// Package storage is the conversation store: planners, events, guests,
// contacts, availability and guest response states over database/sql.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateGuest = errors.New("guest already added to this event")
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return dialectSQLite, nil
	case "postgres", "postgresql":
		return dialectPostgres, nil
	}
	return 0, fmt.Errorf("unsupported database driver %q", driver)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs statements either directly on the pool or inside a
// transaction.
type Queries struct {
	q       querier
	dialect dialect
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.q.ExecContext(ctx, q.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.q.QueryContext(ctx, q.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.q.QueryRowContext(ctx, q.rebind(query), args...)
}

// rebind turns "?" placeholders into "$1".. for postgres.
func (q *Queries) rebind(query string) string {
	if q.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store owns the connection pool.
type Store struct {
	*Queries
	db  *sql.DB
	log zerolog.Logger
}

// Open connects to the database and applies the schema.
func Open(ctx context.Context, driver, dsn string, log zerolog.Logger) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if d == dialectSQLite {
		driver = "sqlite3"
	} else {
		driver = "postgres"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d == dialectSQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := newStore(db, d, log)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("driver", driver).Msg("Conversation store ready")
	return s, nil
}

// newStore wraps an open pool without migrating it.
func newStore(db *sql.DB, d dialect, log zerolog.Logger) *Store {
	return &Store{
		Queries: &Queries{q: db, dialect: d},
		db:      db,
		log:     log,
	}
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn in a transaction, committing when it returns nil. A panic
// in fn rolls the transaction back before it propagates.
func (s *Store) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Error().Err(rbErr).Msg("Failed to roll back transaction after panic")
			}
			panic(p)
		}
	}()
	if err := fn(&Queries{q: tx, dialect: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
