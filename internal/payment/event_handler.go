package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/socialagro/social-agro-backend/internal/core/events"
)

// EventHandler keeps the latest-payment cache consistent with reconciled
// payments.
type EventHandler struct {
	cache  LatestPaymentCache
	logger *slog.Logger
}

func NewEventHandler(cache LatestPaymentCache, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		cache:  cache,
		logger: logger,
	}
}

func (h *EventHandler) HandlePaymentReconciled(ctx context.Context, event events.Event) error {
	reconciled, ok := event.(*events.PaymentReconciledEvent)
	if !ok {
		h.logger.Error("invalid event type for payment reconciled handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentReconciledEvent, got %T", event)
	}

	if err := h.cache.Invalidate(ctx, reconciled.ClientID); err != nil {
		return fmt.Errorf("invalidate latest payment for client %d: %w", reconciled.ClientID, err)
	}

	h.logger.Debug("latest payment cache invalidated",
		"cliente_id", reconciled.ClientID,
		"mp_payment_id", reconciled.MPPaymentID,
		"event_id", reconciled.EventID())

	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentReconciled, h.HandlePaymentReconciled)

	h.logger.Info("payment event handlers registered",
		"handlers", []string{events.EventTypePaymentReconciled})
}
