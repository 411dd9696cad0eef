package quota

import (
	"context"
	"errors"
	"time"
)

// DefaultFreeLimit is the number of paid actions a free user may consume.
const DefaultFreeLimit = 3

// ErrQuotaExceeded is returned when a free user has used every free action.
var ErrQuotaExceeded = errors.New("quota exceeded: upgrade to pro to continue")

// Record matches the user_quotas table schema.
type Record struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	IsPro     bool      `json:"is_pro"`
	ChatCount int       `json:"chat_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is the API response showing a user's tier and remaining free actions.
type Status struct {
	UserID    string `json:"user_id"`
	IsPro     bool   `json:"is_pro"`
	ChatCount int    `json:"chat_count"`
	FreeLimit int    `json:"free_limit"`
	Remaining int    `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
}

// Store persists quota records. Every method must be atomic on its own:
// FindOrCreate inserts only when the user is absent, and IncrementIfNotPro
// increments only when the user is on the free tier and below limit.
type Store interface {
	FindOrCreate(ctx context.Context, userID, email string) (*Record, error)
	// IncrementIfNotPro reports whether the count was incremented.
	IncrementIfNotPro(ctx context.Context, userID string, limit int) (bool, error)
	// SetPro marks the user as pro and resets the count, creating the
	// record when it does not exist yet.
	SetPro(ctx context.Context, userID string) error
}
