package paymentgateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

// PreferenceRequest is the body of POST /checkout/preferences.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference,omitempty"`
	NotificationURL   string           `json:"notification_url,omitempty"`
}

func (r *PreferenceRequest) Validate() error {
	if len(r.Items) == 0 {
		return errors.New("at least one item is required")
	}
	for _, item := range r.Items {
		if strings.TrimSpace(item.Title) == "" {
			return errors.New("item title is required")
		}
		if item.Quantity <= 0 {
			return errors.New("item quantity must be greater than 0")
		}
		if item.UnitPrice <= 0 {
			return errors.New("item unit_price must be greater than 0")
		}
		if item.CurrencyID == "" {
			return errors.New("item currency_id is required")
		}
	}
	return nil
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CheckoutURL prefers the production link and falls back to the sandbox one.
func (p *Preference) CheckoutURL() string {
	if p.InitPoint != "" {
		return p.InitPoint
	}
	return p.SandboxInitPoint
}

// PaymentResource is the subset of GET /v1/payments/{id} the backend reads.
type PaymentResource struct {
	ID                FlexString       `json:"id"`
	Status            string           `json:"status"`
	StatusDetail      string           `json:"status_detail"`
	TransactionAmount *decimal.Decimal `json:"transaction_amount"`
	DateApproved      *string          `json:"date_approved"`
	ExternalReference FlexString       `json:"external_reference"`
}

// FlexString accepts a JSON string, number or null. Mercado Pago sends ids as
// numbers and references as strings, but neither is guaranteed.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
