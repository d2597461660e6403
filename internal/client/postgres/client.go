package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/socialagro/social-agro-backend/internal"
	clientpkg "github.com/socialagro/social-agro-backend/internal/client"
	"github.com/socialagro/social-agro-backend/internal/core/common/dbutil"
	clientDatamodel "github.com/socialagro/social-agro-backend/internal/core/datamodel/client"
)

type ClientRepository struct {
	db *gorm.DB
}

var _ clientpkg.RepositoryAPI = (*ClientRepository)(nil)

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) List(ctx context.Context) ([]*clientDatamodel.Client, error) {
	var clients []*clientDatamodel.Client
	err := r.db.WithContext(ctx).Order("nome ASC").Order("id ASC").Find(&clients).Error
	return clients, err
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*clientDatamodel.Client, error) {
	var c clientDatamodel.Client
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *ClientRepository) GetByEmail(ctx context.Context, email string) (*clientDatamodel.Client, error) {
	var c clientDatamodel.Client
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *ClientRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&clientDatamodel.Client{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *ClientRepository) Create(ctx context.Context, c *clientDatamodel.Client) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *ClientRepository) Update(ctx context.Context, c *clientDatamodel.Client, updatePassword bool) error {
	columns := map[string]interface{}{
		"nome":                         c.Name,
		"email":                        c.Email,
		"plano":                        c.Plan,
		"data_pagamento":               c.PaymentDate,
		"valor_personalizado_centavos": c.CustomAmountCents,
	}
	if updatePassword {
		columns["senha_hash"] = c.PasswordHash
	}

	result := r.db.WithContext(ctx).
		Model(&clientDatamodel.Client{}).
		Where("id = ?", c.ID).
		Updates(columns)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrClientNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return internal.ErrClientNotFound
	case dbutil.IsUniqueViolation(err):
		return internal.ErrClientEmailTaken
	}
	return err
}
