package enums

import "fmt"

// PayoutStatus maps to the payout_status_enum enum in Postgres.
type PayoutStatus string

const (
	PayoutStatusDraft               PayoutStatus = "draft"
	PayoutStatusVerificationPending PayoutStatus = "verification_pending"
	PayoutStatusVerified            PayoutStatus = "verified"
	PayoutStatusExecuting           PayoutStatus = "executing"
	PayoutStatusCompleted           PayoutStatus = "completed"
	PayoutStatusRejected            PayoutStatus = "rejected"
	PayoutStatusFailed              PayoutStatus = "failed"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusDraft,
	PayoutStatusVerificationPending,
	PayoutStatusVerified,
	PayoutStatusExecuting,
	PayoutStatusCompleted,
	PayoutStatusRejected,
	PayoutStatusFailed,
}

// IsValid reports whether the value matches the canonical payout status enum.
func (s PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the payout can no longer change state.
func (s PayoutStatus) IsTerminal() bool {
	switch s {
	case PayoutStatusCompleted, PayoutStatusRejected, PayoutStatusFailed:
		return true
	}
	return false
}

// ParsePayoutStatus converts raw input into PayoutStatus.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	for _, candidate := range validPayoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout status %q", value)
}

// PayoutScope distinguishes whose balance a payout draws from.
type PayoutScope string

const (
	PayoutScopeUser    PayoutScope = "user"
	PayoutScopePartner PayoutScope = "partner"
)

// IsValid reports whether the value matches the canonical payout scope enum.
func (s PayoutScope) IsValid() bool {
	return s == PayoutScopeUser || s == PayoutScopePartner
}

// ParsePayoutScope converts raw input into PayoutScope.
func ParsePayoutScope(value string) (PayoutScope, error) {
	scope := PayoutScope(value)
	if scope.IsValid() {
		return scope, nil
	}
	return "", fmt.Errorf("invalid payout scope %q", value)
}

// PayoutSpeed selects the PIX settlement track.
type PayoutSpeed string

const (
	PayoutSpeedStandard PayoutSpeed = "standard"
	PayoutSpeedInstant  PayoutSpeed = "instant"
)

// IsValid reports whether the value matches the canonical payout speed enum.
func (s PayoutSpeed) IsValid() bool {
	return s == PayoutSpeedStandard || s == PayoutSpeedInstant
}

// PixKeyType enumerates the PIX key formats accepted by the payment rail.
type PixKeyType string

const (
	PixKeyTypeCPF    PixKeyType = "cpf"
	PixKeyTypeCNPJ   PixKeyType = "cnpj"
	PixKeyTypeEmail  PixKeyType = "email"
	PixKeyTypePhone  PixKeyType = "phone"
	PixKeyTypeRandom PixKeyType = "random"
)

var validPixKeyTypes = []PixKeyType{
	PixKeyTypeCPF,
	PixKeyTypeCNPJ,
	PixKeyTypeEmail,
	PixKeyTypePhone,
	PixKeyTypeRandom,
}

// IsValid reports whether the value matches the canonical PIX key type enum.
func (t PixKeyType) IsValid() bool {
	for _, candidate := range validPixKeyTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePixKeyType converts raw input into PixKeyType.
func ParsePixKeyType(value string) (PixKeyType, error) {
	for _, candidate := range validPixKeyTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pix key type %q", value)
}
