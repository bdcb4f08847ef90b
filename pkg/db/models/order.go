package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/pkg/enums"
)

// Order is the minimal order aggregate the money core operates on.
// Version backs the optimistic status guard: transitions only commit when
// both status and version still match the values read inside the transaction.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID    uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	TotalCents  int64             `gorm:"column:total_cents;not null"`
	Currency    enums.Currency    `gorm:"column:currency;type:text;not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null"`
	Version     int               `gorm:"column:version;not null;default:0"`
	CouponCode  *string           `gorm:"column:coupon_code;type:text"`
	Txid        *string           `gorm:"column:txid;type:text;uniqueIndex:ux_orders_txid"`
	PaymentID   *string           `gorm:"column:payment_id;type:text"`
	PaidAt      *time.Time        `gorm:"column:paid_at"`
	DeliveredAt *time.Time        `gorm:"column:delivered_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
