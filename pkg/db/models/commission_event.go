package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/pkg/enums"
)

// CommissionEvent is the immutable attribution record produced once per
// order at payment-confirmation time. The unique order_id index is the
// once-per-order guard.
type CommissionEvent struct {
	ID                    uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID               uuid.UUID      `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_commission_events_order_id"`
	PartnerID             *uuid.UUID     `gorm:"column:partner_id;type:uuid;index"`
	CouponCode            *string        `gorm:"column:coupon_code;type:text"`
	DiscountAppliedCents  int64          `gorm:"column:discount_applied_cents;not null"`
	PlatformFeeBaseCents  int64          `gorm:"column:platform_fee_base_cents;not null"`
	PlatformFeeFinalCents int64          `gorm:"column:platform_fee_final_cents;not null"`
	CommissionCents       int64          `gorm:"column:commission_cents;not null"`
	Currency              enums.Currency `gorm:"column:currency;type:text;not null"`
	CreatedAt             time.Time      `gorm:"column:created_at;autoCreateTime"`
}
