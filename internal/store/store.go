// Package store is the PostgreSQL persistence layer. It owns all SQL; the
// domain packages above it never see pgx types.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate indicates a unique constraint was violated.
var ErrDuplicate = errors.New("duplicate")

// Store wraps the connection pool.
type Store struct {
	Pool *pgxpool.Pool
}

// New constructs a Store over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Ping probes database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.Pool == nil {
		return errors.New("store not configured")
	}
	return s.Pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
