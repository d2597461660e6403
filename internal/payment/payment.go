package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/socialagro/social-agro-backend/internal/core/datamodel/paymentgateway"
)

var ErrPaymentNotFound = errors.New("payment not found")

type RepositoryAPI interface {
	Create(ctx context.Context, p *payment.Payment) error
	GetByID(ctx context.Context, id int64) (*payment.Payment, error)
	GetByPaymentID(ctx context.Context, mpPaymentID string) (*payment.Payment, error)
	GetLatestByClientID(ctx context.Context, clientID int64) (*payment.Payment, error)
	ListByClientID(ctx context.Context, clientID int64) ([]*payment.Payment, error)
	// UpsertByPaymentID inserts p or, when a row with the same mp_payment_id
	// exists, overwrites its status fields and keeps the stored amount when
	// p.AmountCents is nil. The stored row is returned.
	UpsertByPaymentID(ctx context.Context, p *payment.Payment) (*payment.Payment, error)
}

type NotificationRepositoryAPI interface {
	Record(ctx context.Context, n *payment.Notification) error
}

type GatewayAPI interface {
	CreatePreference(ctx context.Context, req *paymentgatewaytypes.PreferenceRequest) (*paymentgatewaytypes.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*paymentgatewaytypes.PaymentResource, error)
}

// LatestPaymentCache memoises the most recent payment row per client.
type LatestPaymentCache interface {
	Get(ctx context.Context, clientID int64) (*payment.Payment, bool, error)
	Set(ctx context.Context, clientID int64, p *payment.Payment) error
	Invalidate(ctx context.Context, clientID int64) error
}

type ServiceAPI interface {
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error)
	GetLatestForClient(ctx context.Context, clientID int64) (*payment.Payment, error)
}

// statusRank orders gateway statuses so a late pending delivery cannot
// overwrite a settled one when downgrade protection is on.
var statusRank = map[string]int{
	payment.StatusUnknown:     0,
	payment.StatusPending:     1,
	payment.StatusInProcess:   1,
	payment.StatusInMediation: 1,
	payment.StatusAuthorized:  2,
	payment.StatusApproved:    3,
	payment.StatusRejected:    3,
	payment.StatusCancelled:   3,
	payment.StatusRefunded:    4,
	payment.StatusChargedBack: 4,
}

func rank(status string) int {
	if r, ok := statusRank[status]; ok {
		return r
	}
	return 0
}

// IsDowngrade reports whether moving from current to next would regress a
// payment that already reached a settled status.
func IsDowngrade(current, next string) bool {
	if rank(current) < statusRank[payment.StatusAuthorized] {
		return false
	}
	return rank(next) < rank(current)
}

// IsPaymentTopic accepts notifications without a topic and any topic naming
// a payment ("payment", "merchant_order.payment" ...).
func IsPaymentTopic(topic string) bool {
	return topic == "" || strings.Contains(topic, "payment")
}
