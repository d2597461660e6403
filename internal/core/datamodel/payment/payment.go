package payment

import (
	"time"

	"gorm.io/datatypes"
)

// Payment is one row of the pagamentos table: a checkout attempt or a payment
// reported by Mercado Pago.
type Payment struct {
	ID             int64      `gorm:"column:id;primaryKey" json:"id"`
	ClientID       *int64     `gorm:"column:cliente_id;index" json:"cliente_id"`
	MPPreferenceID *string    `gorm:"column:mp_preference_id" json:"mp_preference_id"`
	MPPaymentID    *string    `gorm:"column:mp_payment_id;uniqueIndex" json:"mp_payment_id"`
	Status         string     `gorm:"column:status;not null;default:pending" json:"status"`
	StatusDetail   *string    `gorm:"column:status_detail" json:"status_detail"`
	AmountCents    *int64     `gorm:"column:valor_centavos" json:"valor_centavos"`
	PaidAt         *time.Time `gorm:"column:pago_em" json:"pago_em"`
	CreatedAt      time.Time  `gorm:"column:criado_em;autoCreateTime" json:"criado_em"`
}

func (Payment) TableName() string {
	return "pagamentos"
}

const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusAuthorized  = "authorized"
	StatusInProcess   = "in_process"
	StatusInMediation = "in_mediation"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"
	StatusUnknown     = "unknown"
)

// Notification is the raw audit trail of every webhook delivery.
type Notification struct {
	ID         int64          `gorm:"column:id;primaryKey" json:"id"`
	Topic      string         `gorm:"column:topic" json:"topic"`
	ResourceID string         `gorm:"column:resource_id;index" json:"resource_id"`
	Payload    datatypes.JSON `gorm:"column:payload" json:"payload"`
	ReceivedAt time.Time      `gorm:"column:recebido_em;autoCreateTime" json:"recebido_em"`
}

func (Notification) TableName() string {
	return "mp_notificacoes"
}
