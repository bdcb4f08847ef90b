package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
)

// Repository persists coupons. ConsumeUsage is the only mutation performed
// during checkout and is deliberately a conditional single-statement UPDATE.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, coupon *models.Coupon) error
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	ConsumeUsage(ctx context.Context, coupon *models.Coupon) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a coupon repository bound to the given database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Partner").
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Preload("Partner").
		Where("id = ?", id).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ConsumeUsage increments uses_count, but only while the limit still has
// room. The WHERE clause is the race guard: two checkouts fighting over the
// last use resolve at the database, not in application memory. Returns false
// when the limit was already exhausted.
func (r *repository) ConsumeUsage(ctx context.Context, coupon *models.Coupon) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", coupon.ID).
		Where("max_uses IS NULL OR uses_count < max_uses").
		UpdateColumn("uses_count", gorm.Expr("uses_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
