package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/pkg/enums"
)

// Payout is a withdrawal request against an available balance. Verification
// codes are stored as Argon2id hashes; the plaintext only travels through
// the out-of-band delivery collaborator.
type Payout struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Scope            enums.PayoutScope  `gorm:"column:scope;type:payout_scope_enum;not null"`
	UserID           *uuid.UUID         `gorm:"column:user_id;type:uuid;index"`
	PartnerID        *uuid.UUID         `gorm:"column:partner_id;type:uuid;index"`
	AmountCents      int64              `gorm:"column:amount_cents;not null"`
	Currency         enums.Currency     `gorm:"column:currency;type:text;not null"`
	PixKey           string             `gorm:"column:pix_key;type:text;not null"`
	PixKeyType       enums.PixKeyType   `gorm:"column:pix_key_type;type:pix_key_type_enum;not null"`
	Status           enums.PayoutStatus `gorm:"column:status;type:payout_status_enum;not null"`
	Speed            enums.PayoutSpeed  `gorm:"column:speed;type:payout_speed_enum;not null"`
	EmailCodeHash    string             `gorm:"column:email_code_hash;type:text;not null"`
	WhatsAppCodeHash *string            `gorm:"column:whatsapp_code_hash;type:text"`
	CodeExpiresAt    time.Time          `gorm:"column:code_expires_at;not null"`
	VerifyAttempts   int                `gorm:"column:verify_attempts;not null;default:0"`
	FailureReason    *string            `gorm:"column:failure_reason;type:text"`
	Version          int                `gorm:"column:version;not null;default:0"`
	VerifiedAt       *time.Time         `gorm:"column:verified_at"`
	ExecutedAt       *time.Time         `gorm:"column:executed_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
