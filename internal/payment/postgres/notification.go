package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
	paymentpkg "github.com/socialagro/social-agro-backend/internal/payment"
)

type NotificationRepository struct {
	db *gorm.DB
}

var _ paymentpkg.NotificationRepositoryAPI = (*NotificationRepository)(nil)

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Record(ctx context.Context, n *payment.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListByResourceID returns the deliveries received for one gateway resource,
// oldest first.
func (r *NotificationRepository) ListByResourceID(ctx context.Context, resourceID string) ([]*payment.Notification, error) {
	var out []*payment.Notification
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
