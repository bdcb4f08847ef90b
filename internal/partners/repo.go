package partners

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
)

// Repository persists partners and their referral clicks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, partner *models.Partner) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	FindBySlug(ctx context.Context, slug string) (*models.Partner, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetPayoutBlocked(ctx context.Context, id uuid.UUID, blocked bool, reason *string, at *time.Time) error
	CreateClick(ctx context.Context, click *models.PartnerClick) error
	CountClicks(ctx context.Context, partnerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a partner repository bound to the given database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, partner *models.Partner) error {
	return r.db.WithContext(ctx).Create(partner).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&partner).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Partner, error) {
	var partner models.Partner
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&partner).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Partner{}).
		Where("id = ?", id).
		UpdateColumn("active", active).Error
}

func (r *repository) SetPayoutBlocked(ctx context.Context, id uuid.UUID, blocked bool, reason *string, at *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Partner{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"payout_blocked":      blocked,
			"payout_blocked_at":   at,
			"payout_block_reason": reason,
		}).Error
}

func (r *repository) CreateClick(ctx context.Context, click *models.PartnerClick) error {
	return r.db.WithContext(ctx).Create(click).Error
}

func (r *repository) CountClicks(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PartnerClick{}).
		Where("partner_id = ?", partnerID).
		Count(&count).Error
	return count, err
}
