package models

import (
	"time"

	"github.com/google/uuid"
)

// Partner is a referral partner earning commission on attributed orders.
// An inactive partner makes every coupon referencing it unusable.
type Partner struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug              string     `gorm:"column:slug;type:text;not null;uniqueIndex"`
	Name              string     `gorm:"column:name;type:text;not null"`
	CommissionBps     int        `gorm:"column:commission_bps;not null"`
	Active            bool       `gorm:"column:active;not null"`
	PayoutBlocked     bool       `gorm:"column:payout_blocked;not null;default:false"`
	PayoutBlockedAt   *time.Time `gorm:"column:payout_blocked_at"`
	PayoutBlockReason *string    `gorm:"column:payout_block_reason;type:text"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// PartnerClick records a tracked referral click for partner stats.
type PartnerClick struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID uuid.UUID `gorm:"column:partner_id;type:uuid;not null;index"`
	Referrer  *string   `gorm:"column:referrer;type:text"`
	IPHash    *string   `gorm:"column:ip_hash;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
