package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/pkg/enums"
)

// User carries the identity fields the money core needs: role for the
// capability check plus the two independent block flags, each timestamped
// with a reason for the audit trail.
type User struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email             string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Role              enums.UserRole `gorm:"column:role;type:user_role_enum;not null"`
	Blocked           bool           `gorm:"column:blocked;not null;default:false"`
	BlockedAt         *time.Time     `gorm:"column:blocked_at"`
	BlockReason       *string        `gorm:"column:block_reason;type:text"`
	PayoutBlocked     bool           `gorm:"column:payout_blocked;not null;default:false"`
	PayoutBlockedAt   *time.Time     `gorm:"column:payout_blocked_at"`
	PayoutBlockReason *string        `gorm:"column:payout_block_reason;type:text"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
