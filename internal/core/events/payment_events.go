package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeCheckoutCreated   = "payment.checkout_created"
	EventTypePaymentReconciled = "payment.reconciled"
)

type CheckoutCreatedEvent struct {
	BaseEvent
	ClientID     *int64 `json:"cliente_id"`
	PreferenceID string `json:"mp_preference_id"`
	AmountCents  int64  `json:"valor_centavos"`
}

func NewCheckoutCreatedEvent(clientID *int64, preferenceID string, amountCents int64) *CheckoutCreatedEvent {
	return &CheckoutCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCheckoutCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"cliente_id":       clientID,
				"mp_preference_id": preferenceID,
				"valor_centavos":   amountCents,
			},
		},
		ClientID:     clientID,
		PreferenceID: preferenceID,
		AmountCents:  amountCents,
	}
}

// PaymentReconciledEvent is raised after a gateway payment has been written
// to the payment store.
type PaymentReconciledEvent struct {
	BaseEvent
	PaymentID   int64      `json:"id"`
	ClientID    int64      `json:"cliente_id"`
	MPPaymentID string     `json:"mp_payment_id"`
	Status      string     `json:"status"`
	AmountCents *int64     `json:"valor_centavos"`
	PaidAt      *time.Time `json:"pago_em"`
}

func NewPaymentReconciledEvent(paymentID, clientID int64, mpPaymentID, status string, amountCents *int64, paidAt *time.Time) *PaymentReconciledEvent {
	return &PaymentReconciledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentReconciled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"id":             paymentID,
				"cliente_id":     clientID,
				"mp_payment_id":  mpPaymentID,
				"status":         status,
				"valor_centavos": amountCents,
				"pago_em":        paidAt,
			},
		},
		PaymentID:   paymentID,
		ClientID:    clientID,
		MPPaymentID: mpPaymentID,
		Status:      status,
		AmountCents: amountCents,
		PaidAt:      paidAt,
	}
}
