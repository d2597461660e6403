package payment

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	errors "github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
)

// PlanPrice accepts the plan price as a JSON string or number.
type PlanPrice string

func (p *PlanPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PlanPrice(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PlanPrice(n.String())
	return nil
}

type CheckoutRequest struct {
	PlanName string      `json:"planName"`
	Price    PlanPrice   `json:"price"`
	ClientID json.Number `json:"clienteId,omitempty"`
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

type WebhookAck struct {
	Received bool `json:"received"`
}

type LatestPaymentResponse struct {
	Payment *payment.Payment `json:"pagamento"`
}

// checkout is a validated CheckoutRequest.
type checkout struct {
	planName string
	price    decimal.Decimal
	clientID *int64
}

func (r *CheckoutRequest) hasPlan() bool {
	return strings.TrimSpace(r.PlanName) != "" && strings.TrimSpace(string(r.Price)) != ""
}

// parse validates the request. The price is a machine-generated major-unit
// amount and is read as a plain decimal number.
func (r *CheckoutRequest) parse() (*checkout, error) {
	if !r.hasPlan() {
		return nil, errors.NewValidationError("Dados do plano inválidos", errors.ErrCodeInvalidPlan)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(string(r.Price)))
	if err != nil || !price.IsPositive() {
		return nil, errors.NewValidationError("Preço inválido", errors.ErrCodeInvalidPrice)
	}

	out := &checkout{planName: strings.TrimSpace(r.PlanName), price: price}

	if raw := r.ClientID.String(); raw != "" && raw != "0" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.NewValidationError("Cliente inválido", errors.ErrCodeInvalidID)
		}
		out.clientID = &id
	}

	return out, nil
}
