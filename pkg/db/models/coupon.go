package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon configures a discount, optionally attributed to a referral partner.
// Exactly one of DiscountBps/DiscountCents is set while the coupon is active.
// UsesCount never exceeds MaxUses; the guard is the conditional UPDATE in the
// coupons repository, not a read-then-write.
type Coupon struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string     `gorm:"column:code;type:text;not null;uniqueIndex"`
	PartnerID     *uuid.UUID `gorm:"column:partner_id;type:uuid"`
	Partner       *Partner   `gorm:"foreignKey:PartnerID"`
	Active        bool       `gorm:"column:active;not null"`
	DiscountBps   *int       `gorm:"column:discount_bps"`
	DiscountCents *int64     `gorm:"column:discount_cents"`
	StartsAt      *time.Time `gorm:"column:starts_at"`
	EndsAt        *time.Time `gorm:"column:ends_at"`
	MaxUses       *int       `gorm:"column:max_uses"`
	UsesCount     int        `gorm:"column:uses_count;not null;default:0"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
