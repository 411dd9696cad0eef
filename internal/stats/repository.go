package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles daily_usage_stats PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new stats Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) TouchDailyRecord(ctx context.Context, date time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO daily_usage_stats (date) VALUES ($1) ON CONFLICT (date) DO NOTHING`, date)
	if err != nil {
		return fmt.Errorf("touching daily record: %w", err)
	}
	return nil
}

func (r *Repository) AddActiveUser(ctx context.Context, date time.Time, userID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO daily_active_users (date, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		date, userID)
	if err != nil {
		return fmt.Errorf("adding active user: %w", err)
	}
	return nil
}

// IncrementCounter claims eventID and bumps the counter in one statement,
// so either both happen or neither does.
func (r *Repository) IncrementCounter(ctx context.Context, date time.Time, counter Counter, eventID string) error {
	if !counter.Valid() {
		return fmt.Errorf("unknown counter %q", counter)
	}

	// counter is one of the fixed column names above.
	var (
		query string
		args  []any
	)
	if eventID == "" {
		query = fmt.Sprintf(
			`UPDATE daily_usage_stats SET %[1]s = %[1]s + 1, updated_at = NOW() WHERE date = $1`, counter)
		args = []any{date}
	} else {
		query = fmt.Sprintf(`
			WITH claimed AS (
				INSERT INTO applied_usage_events (event_id, date) VALUES ($2, $1)
				ON CONFLICT (event_id) DO NOTHING
				RETURNING event_id
			)
			UPDATE daily_usage_stats SET %[1]s = %[1]s + 1, updated_at = NOW()
			WHERE date = $1 AND EXISTS (SELECT 1 FROM claimed)`, counter)
		args = []any{date, eventID}
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("incrementing %s: %w", counter, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, date time.Time) (*Daily, error) {
	d := Daily{Date: date}
	err := r.pool.QueryRow(ctx,
		`SELECT solve_count, explain_count, summarize_count, chat_count
		 FROM daily_usage_stats WHERE date = $1`, date,
	).Scan(&d.SolveCount, &d.ExplainCount, &d.SummarizeCount, &d.ChatCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching daily stats: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM daily_active_users WHERE date = $1 ORDER BY user_id`, date)
	if err != nil {
		return nil, fmt.Errorf("listing active users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning active users: %w", err)
	}

	d.ActiveUserIDs = ids
	d.ActiveUsers = len(ids)
	return &d, nil
}
