package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type_enum enum in Postgres.
type LedgerEntryType string

const (
	LedgerEntryTypeCredit LedgerEntryType = "credit"
	LedgerEntryTypeDebit  LedgerEntryType = "debit"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeCredit,
	LedgerEntryTypeDebit,
}

// IsValid reports whether the value matches the canonical entry type enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Sign returns +1 for credits and -1 for debits.
func (t LedgerEntryType) Sign() int64 {
	if t == LedgerEntryTypeDebit {
		return -1
	}
	return 1
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}

// LedgerEntryState maps to the ledger_entry_state_enum enum in Postgres.
// Held funds await delivery confirmation, available funds are payable,
// reversed funds were returned to the payer.
type LedgerEntryState string

const (
	LedgerEntryStateHeld      LedgerEntryState = "held"
	LedgerEntryStateAvailable LedgerEntryState = "available"
	LedgerEntryStateReversed  LedgerEntryState = "reversed"
)

var validLedgerEntryStates = []LedgerEntryState{
	LedgerEntryStateHeld,
	LedgerEntryStateAvailable,
	LedgerEntryStateReversed,
}

// IsValid reports whether the value matches the canonical entry state enum.
func (s LedgerEntryState) IsValid() bool {
	for _, candidate := range validLedgerEntryStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerEntryState converts raw input into LedgerEntryState.
func ParseLedgerEntryState(value string) (LedgerEntryState, error) {
	for _, candidate := range validLedgerEntryStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry state %q", value)
}

// LedgerSource maps to the ledger_source_enum enum in Postgres.
type LedgerSource string

const (
	LedgerSourceOrderPayment      LedgerSource = "order_payment"
	LedgerSourcePartnerCommission LedgerSource = "partner_commission"
	LedgerSourcePayout            LedgerSource = "payout"
	LedgerSourceRefund            LedgerSource = "refund"
	LedgerSourceManualAdjustment  LedgerSource = "manual_adjustment"
)

var validLedgerSources = []LedgerSource{
	LedgerSourceOrderPayment,
	LedgerSourcePartnerCommission,
	LedgerSourcePayout,
	LedgerSourceRefund,
	LedgerSourceManualAdjustment,
}

// IsValid reports whether the value matches the canonical source enum.
func (s LedgerSource) IsValid() bool {
	for _, candidate := range validLedgerSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerSource converts raw input into LedgerSource.
func ParseLedgerSource(value string) (LedgerSource, error) {
	for _, candidate := range validLedgerSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger source %q", value)
}
