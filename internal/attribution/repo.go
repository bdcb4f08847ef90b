package attribution

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
)

// StatsRow aggregates a partner's attribution totals.
type StatsRow struct {
	AttributedOrders    int64 `gorm:"column:attributed_orders"`
	CommissionSumCents  int64 `gorm:"column:commission_sum_cents"`
	DiscountTotalCents  int64 `gorm:"column:discount_total_cents"`
	PlatformFeeReceived int64 `gorm:"column:platform_fee_received_cents"`
}

// Repository persists commission events. Events are immutable once written.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.CommissionEvent) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.CommissionEvent, error)
	StatsByPartner(ctx context.Context, partnerID uuid.UUID) (*StatsRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commission event repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.CommissionEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.CommissionEvent, error) {
	var event models.CommissionEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) StatsByPartner(ctx context.Context, partnerID uuid.UUID) (*StatsRow, error) {
	var row StatsRow
	err := r.db.WithContext(ctx).
		Model(&models.CommissionEvent{}).
		Select(
			"COUNT(*) AS attributed_orders, " +
				"COALESCE(SUM(commission_cents), 0) AS commission_sum_cents, " +
				"COALESCE(SUM(discount_applied_cents), 0) AS discount_total_cents, " +
				"COALESCE(SUM(platform_fee_final_cents), 0) AS platform_fee_received_cents",
		).
		Where("partner_id = ?", partnerID).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
