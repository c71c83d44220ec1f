package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CountersRepo struct{ pool *pgxpool.Pool }

// IncAndCheck counts one request for subject in the window starting at
// windowStart and reports whether the count is still within limit.
func (r *CountersRepo) IncAndCheck(ctx context.Context, subject, window string, windowStart time.Time, limit int) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
INSERT INTO usage_counters(subject, window_type, window_start, count)
VALUES($1,$2,$3,1)
ON CONFLICT (subject, window_type, window_start)
DO UPDATE SET count = usage_counters.count + 1
RETURNING count
`, subject, window, windowStart).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("incrementing counter: %w", err)
	}
	return count <= limit, nil
}

// Prune deletes windows that started before cutoff.
func (r *CountersRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM usage_counters WHERE window_start < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning counters: %w", err)
	}
	return tag.RowsAffected(), nil
}
