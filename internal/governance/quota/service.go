package quota

import (
	"context"
	"fmt"
	"log/slog"
)

// Ledger gates paid actions on the free-tier limit and records consumption.
// It holds no state of its own; atomicity comes from the Store.
type Ledger struct {
	store     Store
	freeLimit int
}

// NewLedger creates a Ledger. A non-positive freeLimit means DefaultFreeLimit.
func NewLedger(store Store, freeLimit int) *Ledger {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeLimit
	}
	return &Ledger{store: store, freeLimit: freeLimit}
}

// FreeLimit returns the configured free-tier limit.
func (l *Ledger) FreeLimit() int {
	return l.freeLimit
}

// EnsureUser fetches the user's record, creating it on first sight.
func (l *Ledger) EnsureUser(ctx context.Context, userID, emailHint string) (*Record, error) {
	rec, err := l.store.FindOrCreate(ctx, userID, emailHint)
	if err != nil {
		return nil, fmt.Errorf("ensuring user: %w", err)
	}
	return rec, nil
}

// CheckAllowed reports whether rec may start another paid action.
func (l *Ledger) CheckAllowed(rec *Record) bool {
	return rec.IsPro || rec.ChatCount < l.freeLimit
}

// RecordConsumption charges one action to a free user. Call it only after
// the action succeeded. Pro users are not charged.
func (l *Ledger) RecordConsumption(ctx context.Context, userID string) error {
	incremented, err := l.store.IncrementIfNotPro(ctx, userID, l.freeLimit)
	if err != nil {
		return fmt.Errorf("recording consumption: %w", err)
	}
	if !incremented {
		slog.Debug("quota: consumption not charged", "user_id", userID)
	}
	return nil
}

// Upgrade moves the user to the pro tier and resets the count. It is idempotent.
func (l *Ledger) Upgrade(ctx context.Context, userID string) error {
	if err := l.store.SetPro(ctx, userID); err != nil {
		return fmt.Errorf("upgrading user: %w", err)
	}
	slog.Info("quota: user upgraded to pro", "user_id", userID)
	return nil
}

// Status returns the user's current tier and remaining free actions.
func (l *Ledger) Status(ctx context.Context, userID, emailHint string) (*Status, error) {
	rec, err := l.EnsureUser(ctx, userID, emailHint)
	if err != nil {
		return nil, fmt.Errorf("getting quota: %w", err)
	}

	st := &Status{
		UserID:    rec.UserID,
		IsPro:     rec.IsPro,
		ChatCount: rec.ChatCount,
		FreeLimit: l.freeLimit,
		Unlimited: rec.IsPro,
	}
	if !rec.IsPro {
		st.Remaining = max(l.freeLimit-rec.ChatCount, 0)
	}
	return st, nil
}
