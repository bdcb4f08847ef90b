package auth

import (
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
)

// Capability names an operation class. Each endpoint declares the capability
// it requires; Authorize is the single decision point, replacing per-endpoint
// role lists.
type Capability string

const (
	CapWalletRead       Capability = "wallet:read"
	CapPayoutRequest    Capability = "payout:request"
	CapPayoutExecute    Capability = "payout:execute"
	CapCouponValidate   Capability = "coupon:validate"
	CapCouponManage     Capability = "coupon:manage"
	CapPartnerStats     Capability = "partner:stats"
	CapAdminAdjust      Capability = "admin:adjust"
	CapAdminBlockToggle Capability = "admin:block"
)

var capabilitiesByRole = map[enums.UserRole][]Capability{
	enums.UserRoleBuyer: {
		CapCouponValidate,
	},
	enums.UserRoleSeller: {
		CapCouponValidate,
		CapWalletRead,
		CapPayoutRequest,
	},
	enums.UserRolePartner: {
		CapCouponValidate,
		CapWalletRead,
		CapPayoutRequest,
		CapPartnerStats,
	},
	enums.UserRoleAdmin: {
		CapCouponValidate,
		CapCouponManage,
		CapWalletRead,
		CapPayoutRequest,
		CapPayoutExecute,
		CapPartnerStats,
		CapAdminAdjust,
		CapAdminBlockToggle,
	},
}

// CapabilitiesForRole returns the capability set granted to a role.
func CapabilitiesForRole(role enums.UserRole) []Capability {
	return capabilitiesByRole[role]
}

// HasCapability reports whether the role's capability set includes cap.
func HasCapability(role enums.UserRole, cap Capability) bool {
	for _, candidate := range capabilitiesByRole[role] {
		if candidate == cap {
			return true
		}
	}
	return false
}

// Authorize returns a forbidden error when the role lacks the capability.
func Authorize(role enums.UserRole, cap Capability) error {
	if HasCapability(role, cap) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "missing capability "+string(cap))
}
