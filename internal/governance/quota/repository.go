package quota

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles user_quotas PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quota Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindOrCreate returns the user's quota row, creating one if it doesn't exist.
func (r *Repository) FindOrCreate(ctx context.Context, userID, email string) (*Record, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_quotas (user_id, email) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, email)
	if err != nil {
		return nil, fmt.Errorf("ensuring user quota: %w", err)
	}

	var rec Record
	err = r.pool.QueryRow(ctx,
		`SELECT user_id, email, is_pro, chat_count, created_at, updated_at
		 FROM user_quotas WHERE user_id = $1`, userID,
	).Scan(&rec.UserID, &rec.Email, &rec.IsPro, &rec.ChatCount, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("fetching user quota: %w", err)
	}
	return &rec, nil
}

// IncrementIfNotPro adds one to chat_count for a free user below limit.
func (r *Repository) IncrementIfNotPro(ctx context.Context, userID string, limit int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_quotas
		 SET chat_count = chat_count + 1,
		     updated_at = NOW()
		 WHERE user_id = $1 AND NOT is_pro AND chat_count < $2`, userID, limit)
	if err != nil {
		return false, fmt.Errorf("incrementing chat count: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetPro upgrades the user and resets chat_count.
func (r *Repository) SetPro(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_quotas (user_id, is_pro, chat_count) VALUES ($1, TRUE, 0)
		 ON CONFLICT (user_id) DO UPDATE
		 SET is_pro = TRUE,
		     chat_count = 0,
		     updated_at = NOW()`, userID)
	if err != nil {
		return fmt.Errorf("upgrading user: %w", err)
	}
	return nil
}
