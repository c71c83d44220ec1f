// Package store is the PostgreSQL persistence for the interaction journal and
// rate-limit counters.
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool

	interactions *InteractionsRepo
	cnt          *CountersRepo
}

func New(pool *pgxpool.Pool) *Store {
	s := &Store{pool: pool}
	s.interactions = &InteractionsRepo{pool: pool}
	s.cnt = &CountersRepo{pool: pool}
	return s
}

func (s *Store) Interactions() *InteractionsRepo { return s.interactions }
func (s *Store) Counters() *CountersRepo         { return s.cnt }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
