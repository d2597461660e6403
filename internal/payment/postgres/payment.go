package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
	paymentpkg "github.com/socialagro/social-agro-backend/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

var _ paymentpkg.RepositoryAPI = (*PaymentRepository)(nil)

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, mpPaymentID string) (*payment.Payment, error) {
	return getByPaymentID(r.db.WithContext(ctx), mpPaymentID)
}

func (r *PaymentRepository) GetLatestByClientID(ctx context.Context, clientID int64) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).
		Where("cliente_id = ?", clientID).
		Order("COALESCE(pago_em, criado_em) DESC").
		Order("id DESC").
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PaymentRepository) ListByClientID(ctx context.Context, clientID int64) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.db.WithContext(ctx).
		Where("cliente_id = ?", clientID).
		Order("COALESCE(pago_em, criado_em) DESC").
		Order("id DESC").
		Find(&payments).Error
	return payments, err
}

// UpsertByPaymentID relies on the unique index on mp_payment_id, so
// concurrent deliveries of the same payment collapse into one row.
func (r *PaymentRepository) UpsertByPaymentID(ctx context.Context, p *payment.Payment) (*payment.Payment, error) {
	if p.MPPaymentID == nil || *p.MPPaymentID == "" {
		return nil, errors.New("mp_payment_id is required for upsert")
	}

	var stored *payment.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := *p
		row.ID = 0

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "mp_payment_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":         gorm.Expr("excluded.status"),
				"status_detail":  gorm.Expr("excluded.status_detail"),
				"pago_em":        gorm.Expr("excluded.pago_em"),
				"valor_centavos": gorm.Expr("COALESCE(excluded.valor_centavos, pagamentos.valor_centavos)"),
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		stored, err = getByPaymentID(tx, *p.MPPaymentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

func getByPaymentID(db *gorm.DB, mpPaymentID string) (*payment.Payment, error) {
	var p payment.Payment
	err := db.Where("mp_payment_id = ?", mpPaymentID).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return paymentpkg.ErrPaymentNotFound
	}
	return err
}
