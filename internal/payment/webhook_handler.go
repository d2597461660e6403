package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/socialagro/social-agro-backend/internal/core/datamodel/paymentgateway"
	"github.com/socialagro/social-agro-backend/internal/transport"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

const (
	maxWebhookBody       = 64 << 10
	notificationLogLimit = 2 * time.Second
)

type JobQueue interface {
	Enqueue(job NotificationJob) bool
}

// WebhookHandler acknowledges Mercado Pago notifications and hands them to
// the reconciliation queue.
type WebhookHandler struct {
	*transport.BaseHandler
	queue         JobQueue
	notifications NotificationRepositoryAPI
	logger        *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, queue JobQueue, notifications NotificationRepositoryAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:   baseHandler,
		queue:         queue,
		notifications: notifications,
		logger:        logger,
	}
}

type webhookBody struct {
	ID    paymentgatewaytypes.FlexString `json:"id"`
	Type  string                         `json:"type"`
	Topic string                         `json:"topic"`
	Data  struct {
		ID paymentgatewaytypes.FlexString `json:"id"`
	} `json:"data"`
}

// HandleNotification handles POST /payments/mercadopago/webhook. It always
// answers 200 {"received":true}, whatever happens afterwards.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("failed to read webhook body", "error", err)
	}

	notification := ParseNotification(r, raw)

	h.WriteJSON(w, http.StatusOK, WebhookAck{Received: true})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	ctx := context.WithoutCancel(r.Context())
	log := logger.From(ctx)

	h.record(ctx, notification, r, raw)

	if notification.PaymentID == "" {
		log.Warn("mercado pago webhook without id", "topic", notification.Topic)
		return
	}

	job := NotificationJob{
		Notification: notification,
		TraceID:      logger.TraceID(ctx),
		ReceivedAt:   time.Now(),
	}
	if !h.queue.Enqueue(job) {
		log.Error("mercado pago notification not queued", "mp_payment_id", notification.PaymentID)
	}
}

// ParseNotification reads the topic from ?topic or ?type and the payment id
// from ?id, ?data.id, body data.id or body id, in that order.
func ParseNotification(r *http.Request, raw []byte) Notification {
	query := r.URL.Query()

	var body webhookBody
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	topic := firstNonEmpty(query.Get("topic"), query.Get("type"), body.Topic, body.Type)
	id := firstNonEmpty(query.Get("id"), query.Get("data.id"), body.Data.ID.String(), body.ID.String())

	return Notification{
		Topic:     strings.TrimSpace(topic),
		PaymentID: strings.TrimSpace(id),
	}
}

func (h *WebhookHandler) record(ctx context.Context, n Notification, r *http.Request, raw []byte) {
	if h.notifications == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notificationLogLimit)
	defer cancel()

	payload := map[string]interface{}{"query": r.URL.Query()}
	if json.Valid(raw) {
		payload["body"] = json.RawMessage(raw)
	} else if len(raw) > 0 {
		payload["body"] = string(raw)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		encoded = []byte("{}")
	}

	entry := &payment.Notification{
		Topic:      n.Topic,
		ResourceID: n.PaymentID,
		Payload:    datatypes.JSON(encoded),
	}
	if err := h.notifications.Record(ctx, entry); err != nil {
		logger.From(ctx).Warn("failed to record webhook notification", "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
