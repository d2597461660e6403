package payment

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/core/common/money"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/socialagro/social-agro-backend/internal/core/datamodel/paymentgateway"
	"github.com/socialagro/social-agro-backend/internal/core/events"
	"github.com/socialagro/social-agro-backend/internal/metrics"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

// Service creates Mercado Pago checkouts and serves stored payment state.
type Service struct {
	config     internal.PaymentConfig
	repository RepositoryAPI
	gateway    GatewayAPI
	cache      LatestPaymentCache
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(config internal.PaymentConfig, repository RepositoryAPI, gateway GatewayAPI, logger *slog.Logger) *Service {
	if config.Currency == "" {
		config.Currency = internal.DefaultCurrency
	}
	return &Service{
		config:     config,
		repository: repository,
		gateway:    gateway,
		logger:     logger,
	}
}

func (s *Service) WithCache(cache LatestPaymentCache) *Service {
	s.cache = cache
	return s
}

func (s *Service) WithPublisher(publisher events.Publisher) *Service {
	s.publisher = publisher
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// CreateCheckout opens a Mercado Pago checkout preference for a plan and
// returns the URL the buyer is redirected to.
func (s *Service) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	log := logger.From(ctx)

	if !req.hasPlan() {
		s.metrics.CheckoutOutcome("invalid")
		return nil, internal.NewValidationError("Dados do plano inválidos", internal.ErrCodeInvalidPlan)
	}

	if s.config.AccessToken == "" {
		s.metrics.CheckoutOutcome("not_configured")
		return nil, internal.NewExternalError("Access token do Mercado Pago não configurado", internal.ErrCodeGatewayNotConfigured, nil)
	}

	parsed, err := req.parse()
	if err != nil {
		s.metrics.CheckoutOutcome("invalid")
		return nil, err
	}

	prefReq := &paymentgatewaytypes.PreferenceRequest{
		Items: []paymentgatewaytypes.PreferenceItem{
			{
				Title:      "Plano " + parsed.planName,
				Quantity:   1,
				CurrencyID: s.config.Currency,
				UnitPrice:  parsed.price.InexactFloat64(),
			},
		},
		NotificationURL: s.config.WebhookURL,
	}
	if parsed.clientID != nil {
		prefReq.ExternalReference = strconv.FormatInt(*parsed.clientID, 10)
	}

	pref, err := s.gateway.CreatePreference(ctx, prefReq)
	if err != nil {
		s.metrics.CheckoutOutcome("gateway_error")
		log.Error("failed to create mercado pago preference", "error", err, "plan", parsed.planName)
		return nil, internal.NewExternalError("Erro ao criar preferência de pagamento", internal.ErrCodeGatewayFailed, err)
	}

	checkoutURL := pref.CheckoutURL()
	if checkoutURL == "" {
		s.metrics.CheckoutOutcome("missing_url")
		log.Error("mercado pago preference without checkout url", "preference_id", pref.ID)
		return nil, internal.NewExternalError("Não foi possível obter o link de checkout", internal.ErrCodeCheckoutURLMissing, nil)
	}

	amountCents := money.MajorToCents(parsed.price)
	s.recordPending(ctx, parsed.clientID, pref.ID, amountCents)

	s.metrics.CheckoutOutcome("created")
	log.Info("checkout created",
		"preference_id", pref.ID,
		"plan", parsed.planName,
		"valor_centavos", amountCents)

	return &CheckoutResponse{CheckoutURL: checkoutURL}, nil
}

// recordPending stores the pending attempt. Failures are logged and never
// reach the caller: the checkout URL has already been issued.
func (s *Service) recordPending(ctx context.Context, clientID *int64, preferenceID string, amountCents int64) {
	log := logger.From(ctx)

	record := &payment.Payment{
		ClientID:    clientID,
		Status:      payment.StatusPending,
		AmountCents: &amountCents,
	}
	if preferenceID != "" {
		record.MPPreferenceID = &preferenceID
	}

	if err := s.repository.Create(ctx, record); err != nil {
		log.Error("failed to record pending payment", "error", err, "preference_id", preferenceID)
		return
	}

	if clientID != nil {
		s.invalidate(ctx, *clientID)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewCheckoutCreatedEvent(clientID, preferenceID, amountCents)); err != nil {
			log.Warn("failed to publish checkout event", "error", err)
		}
	}
}

// GetLatestForClient returns the client's most recent payment or nil.
func (s *Service) GetLatestForClient(ctx context.Context, clientID int64) (*payment.Payment, error) {
	log := logger.From(ctx)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, clientID)
		if err != nil {
			log.Warn("latest payment cache read failed", "error", err, "cliente_id", clientID)
		} else if ok {
			return cached, nil
		}
	}

	latest, err := s.repository.GetLatestByClientID(ctx, clientID)
	if errors.Is(err, ErrPaymentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internal.NewInternalError("Erro ao buscar pagamento", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, clientID, latest); err != nil {
			log.Warn("latest payment cache write failed", "error", err, "cliente_id", clientID)
		}
	}

	return latest, nil
}

func (s *Service) invalidate(ctx context.Context, clientID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, clientID); err != nil {
		logger.From(ctx).Warn("latest payment cache invalidation failed", "error", err, "cliente_id", clientID)
	}
}
