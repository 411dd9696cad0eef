// Package billing upgrades users to the pro tier when a Stripe checkout
// completes.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v83"

	"github.com/vikal-platform/vikal/internal/api"
)

const maxPayloadBytes = 256 << 10

// Upgrader is satisfied by *quota.Ledger.
type Upgrader interface {
	Upgrade(ctx context.Context, userID string) error
}

// WebhookHandler verifies Stripe webhook signatures and applies
// checkout.session.completed events.
type WebhookHandler struct {
	secret   string
	upgrader Upgrader
}

func NewWebhookHandler(secret string, upgrader Upgrader) *WebhookHandler {
	return &WebhookHandler{secret: secret, upgrader: upgrader}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid payload"))
		return
	}

	event, err := stripe.ConstructEvent(body, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		slog.Warn("billing: rejected webhook", "error", err)
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.process(r.Context(), &event); err != nil {
		slog.Error("billing: processing webhook", "event_id", event.ID, "type", event.Type, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "ok")
}

func (h *WebhookHandler) process(ctx context.Context, event *stripe.Event) error {
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		slog.Debug("billing: ignoring event", "type", event.Type)
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("unmarshaling checkout session: %w", err)
	}

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		slog.Info("billing: checkout not paid yet", "session_id", session.ID, "payment_status", session.PaymentStatus)
		return nil
	}

	userID := session.ClientReferenceID
	if userID == "" && session.Metadata != nil {
		userID = session.Metadata["user_id"]
	}
	if userID == "" {
		// Retrying would not help; acknowledge and leave it to an operator.
		slog.Error("billing: checkout session has no user", "session_id", session.ID)
		return nil
	}

	if err := h.upgrader.Upgrade(ctx, userID); err != nil {
		return fmt.Errorf("upgrading %s: %w", userID, err)
	}
	return nil
}
