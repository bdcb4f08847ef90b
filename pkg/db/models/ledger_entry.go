package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/pkg/enums"
)

// LedgerEntry is an immutable money movement fact. Entries are only ever
// appended; every balance change is a new entry, never an update.
type LedgerEntry struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type        enums.LedgerEntryType  `gorm:"column:type;type:ledger_entry_type_enum;not null"`
	State       enums.LedgerEntryState `gorm:"column:state;type:ledger_entry_state_enum;not null"`
	Source      enums.LedgerSource     `gorm:"column:source;type:ledger_source_enum;not null"`
	AmountCents int64                  `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency         `gorm:"column:currency;type:text;not null"`
	Description string                 `gorm:"column:description;type:text;not null"`
	OrderID     *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	PaymentID   *string                `gorm:"column:payment_id;type:text"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
