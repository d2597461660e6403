package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/auth"
	"github.com/socialagro/social-agro-backend/internal/core/common/dbutil"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/admin"
)

type AdminRepository struct {
	db *gorm.DB
}

var _ auth.AdminRepositoryAPI = (*AdminRepository)(nil)

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{
		db: db,
	}
}

func (r *AdminRepository) Create(ctx context.Context, a *admin.Admin) error {
	err := r.db.WithContext(ctx).Create(a).Error
	if dbutil.IsUniqueViolation(err) {
		return internal.ErrAdminEmailTaken
	}
	return err
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	var a admin.Admin
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrAdminNotFound
		}
		return nil, err
	}
	return &a, nil
}
