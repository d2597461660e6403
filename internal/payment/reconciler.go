package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/core/common/money"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
	"github.com/socialagro/social-agro-backend/internal/core/events"
	"github.com/socialagro/social-agro-backend/internal/metrics"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

var ErrUnattributed = errors.New("external_reference is not a client id")

// Notification is what the webhook extracted from a Mercado Pago delivery.
type Notification struct {
	Topic     string
	PaymentID string
}

type Outcome string

const (
	OutcomeMissingID        Outcome = "missing_id"
	OutcomeIgnoredTopic     Outcome = "ignored_topic"
	OutcomeNotConfigured    Outcome = "not_configured"
	OutcomeFetchFailed      Outcome = "fetch_failed"
	OutcomeUnattributed     Outcome = "unattributed"
	OutcomeDowngradeSkipped Outcome = "downgrade_skipped"
	OutcomeStoreFailed      Outcome = "store_failed"
	OutcomeReconciled       Outcome = "reconciled"
)

type ReconcilerAPI interface {
	Reconcile(ctx context.Context, n Notification) (Outcome, error)
}

// Reconciler applies the authoritative gateway state of a payment to the
// payment store. Applying the same payment twice leaves the same row.
type Reconciler struct {
	config     internal.PaymentConfig
	repository RepositoryAPI
	gateway    GatewayAPI
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewReconciler(config internal.PaymentConfig, repository RepositoryAPI, gateway GatewayAPI, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		config:     config,
		repository: repository,
		gateway:    gateway,
		logger:     logger,
	}
}

func (r *Reconciler) WithPublisher(publisher events.Publisher) *Reconciler {
	r.publisher = publisher
	return r
}

func (r *Reconciler) WithMetrics(m *metrics.Metrics) *Reconciler {
	r.metrics = m
	return r
}

func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (Outcome, error) {
	outcome, err := r.reconcile(ctx, n)
	r.metrics.WebhookOutcome(string(outcome))

	log := logger.From(ctx).With("mp_payment_id", n.PaymentID, "topic", n.Topic, "outcome", outcome)
	switch {
	case err != nil:
		log.Error("webhook notification dropped", "error", err)
	case outcome == OutcomeReconciled:
		log.Info("payment reconciled")
	default:
		log.Debug("webhook notification skipped")
	}

	return outcome, err
}

func (r *Reconciler) reconcile(ctx context.Context, n Notification) (Outcome, error) {
	paymentID := strings.TrimSpace(n.PaymentID)
	if paymentID == "" {
		return OutcomeMissingID, nil
	}

	if !IsPaymentTopic(n.Topic) {
		return OutcomeIgnoredTopic, nil
	}

	if r.config.AccessToken == "" {
		return OutcomeNotConfigured, errors.New("mercado pago access token not configured")
	}

	resource, err := r.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return OutcomeFetchFailed, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}

	clientID, err := parseClientReference(resource.ExternalReference.String())
	if err != nil {
		return OutcomeUnattributed, fmt.Errorf("payment %s: %w", paymentID, err)
	}

	record := &payment.Payment{
		ClientID: &clientID,
		Status:   resource.Status,
		PaidAt:   r.parseApproval(ctx, resource.DateApproved),
	}
	if record.Status == "" {
		record.Status = payment.StatusUnknown
	}
	if resource.StatusDetail != "" {
		detail := resource.StatusDetail
		record.StatusDetail = &detail
	}
	if resource.TransactionAmount != nil {
		cents := money.MajorToCents(*resource.TransactionAmount)
		record.AmountCents = &cents
	}

	mpPaymentID := resource.ID.String()
	if mpPaymentID == "" {
		mpPaymentID = paymentID
	}
	record.MPPaymentID = &mpPaymentID

	if r.config.IgnoreStatusDowngrades {
		existing, err := r.repository.GetByPaymentID(ctx, mpPaymentID)
		switch {
		case errors.Is(err, ErrPaymentNotFound):
		case err != nil:
			return OutcomeStoreFailed, fmt.Errorf("load payment %s: %w", mpPaymentID, err)
		case IsDowngrade(existing.Status, record.Status):
			logger.From(ctx).Warn("ignoring status downgrade",
				"mp_payment_id", mpPaymentID,
				"current_status", existing.Status,
				"received_status", record.Status)
			return OutcomeDowngradeSkipped, nil
		}
	}

	stored, err := r.repository.UpsertByPaymentID(ctx, record)
	if err != nil {
		return OutcomeStoreFailed, fmt.Errorf("upsert payment %s: %w", mpPaymentID, err)
	}

	r.publish(ctx, stored, clientID)

	return OutcomeReconciled, nil
}

func (r *Reconciler) publish(ctx context.Context, stored *payment.Payment, fallbackClientID int64) {
	if r.publisher == nil || stored == nil {
		return
	}

	clientID := fallbackClientID
	if stored.ClientID != nil {
		clientID = *stored.ClientID
	}
	var mpPaymentID string
	if stored.MPPaymentID != nil {
		mpPaymentID = *stored.MPPaymentID
	}

	event := events.NewPaymentReconciledEvent(stored.ID, clientID, mpPaymentID, stored.Status, stored.AmountCents, stored.PaidAt)
	if err := r.publisher.Publish(ctx, event); err != nil {
		logger.From(ctx).Warn("failed to publish payment reconciled event", "error", err)
	}
}

func (r *Reconciler) parseApproval(ctx context.Context, raw *string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(*raw))
	if err != nil {
		logger.From(ctx).Warn("unparseable date_approved", "value", *raw, "error", err)
		return nil
	}
	return &t
}

func parseClientReference(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrUnattributed
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrUnattributed
	}
	return id, nil
}
