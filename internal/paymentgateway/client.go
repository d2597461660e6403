package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	paymentgatewaytypes "github.com/socialagro/social-agro-backend/internal/core/datamodel/paymentgateway"
	"github.com/socialagro/social-agro-backend/internal/metrics"
)

var (
	ErrNotConfigured = errors.New("mercado pago access token not configured")
	ErrGatewayStatus = errors.New("mercado pago returned a non-success status")
)

const (
	operationCreatePreference = "create_preference"
	operationGetPayment       = "get_payment"

	maxErrorBody = 2048
)

// StatusError carries the gateway's HTTP status and a truncated body.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mercado pago %s returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrGatewayStatus
}

type Config struct {
	BaseURL        string
	AccessToken    string
	RequestTimeout time.Duration
}

// Client talks to the Mercado Pago REST API.
type Client struct {
	baseURL     string
	accessToken string
	timeout     time.Duration
	httpClient  *http.Client
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewClient(config Config, m *metrics.Metrics, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		accessToken: config.AccessToken,
		timeout:     timeout,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		metrics: m,
		logger:  logger,
	}
}

func (c *Client) Configured() bool {
	return c.accessToken != ""
}

func (c *Client) CreatePreference(ctx context.Context, req *paymentgatewaytypes.PreferenceRequest) (*paymentgatewaytypes.Preference, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preference request: %w", err)
	}

	var pref paymentgatewaytypes.Preference
	if err := c.do(ctx, operationCreatePreference, http.MethodPost, "/checkout/preferences", body, &pref); err != nil {
		return nil, err
	}

	c.logger.Info("mercado pago preference created",
		"preference_id", pref.ID,
		"external_reference", req.ExternalReference)

	return &pref, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*paymentgatewaytypes.PaymentResource, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(paymentID) == "" {
		return nil, errors.New("payment id is required")
	}

	var payment paymentgatewaytypes.PaymentResource
	path := "/v1/payments/" + url.PathEscape(paymentID)
	if err := c.do(ctx, operationGetPayment, http.MethodGet, path, nil, &payment); err != nil {
		return nil, err
	}

	return &payment, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body []byte, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.metrics.ObserveGateway(operation, outcome, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mercado pago %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("mercado pago request rejected",
			"operation", operation,
			"status_code", resp.StatusCode)
		return &StatusError{Operation: operation, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}

	return nil
}
