package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Interaction kinds.
const (
	KindEnhance         = "enhance"
	KindEnhanceAdvanced = "enhance_advanced"
	KindEnhanceCompany  = "enhance_company"
	KindAssistant       = "assistant"
)

// MaxHistory caps ListByUser.
const MaxHistory = 100

type Interaction struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id,omitempty"`
	Input      string    `json:"input"`
	Context    string    `json:"context,omitempty"`
	Output     string    `json:"output"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type InteractionsRepo struct{ pool *pgxpool.Pool }

func (r *InteractionsRepo) Record(ctx context.Context, in Interaction) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO interactions(kind, user_id, input, context, output, error, duration_ms)
VALUES($1, NULLIF($2,''), $3, NULLIF($4,''), $5, NULLIF($6,''), $7)
`, in.Kind, in.UserID, in.Input, in.Context, in.Output, in.Error, in.DurationMS)
	if err != nil {
		return fmt.Errorf("recording interaction: %w", err)
	}
	return nil
}

// ListByUser returns the user's most recent interactions, newest first.
func (r *InteractionsRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Interaction, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, kind, COALESCE(user_id,''), input, COALESCE(context,''), output, COALESCE(error,''), duration_ms, created_at
FROM interactions
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Interaction, error) {
		var it Interaction
		err := row.Scan(&it.ID, &it.Kind, &it.UserID, &it.Input, &it.Context, &it.Output, &it.Error, &it.DurationMS, &it.CreatedAt)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning interactions: %w", err)
	}
	return out, nil
}
