package attribution

import (
	"github.com/shopspring/decimal"
)

// TotalsInput holds everything needed to price an order attribution.
// Discount fields are optional; when both are present the fixed amount wins.
type TotalsInput struct {
	OriginalTotalCents   int64
	PlatformFeeBps       int
	DiscountBps          *int
	DiscountCents        *int64
	PartnerCommissionBps *int
}

// Totals is the result of the attribution calculation. All derived values
// are cents, rounded half-up.
type Totals struct {
	PlatformFeeBaseCents   int64
	DiscountAppliedCents   int64
	PlatformFeeFinalCents  int64
	PartnerCommissionCents int64
	FinalTotalCents        int64
	SellerNetCents         int64
}

// CalculateTotals prices an order: fee base, coupon discount capped at the
// fee base, the remaining platform fee, the partner commission taken from
// that remainder, and the buyer's final total. It has no side effects and
// is safe to call for checkout previews.
func CalculateTotals(input TotalsInput) Totals {
	feeBase := roundBps(input.OriginalTotalCents, input.PlatformFeeBps)

	var desiredDiscount int64
	switch {
	case input.DiscountCents != nil:
		desiredDiscount = *input.DiscountCents
	case input.DiscountBps != nil:
		desiredDiscount = roundBps(input.OriginalTotalCents, *input.DiscountBps)
	}
	if desiredDiscount < 0 {
		desiredDiscount = 0
	}

	// The discount is funded entirely from the platform fee, so it can
	// never exceed the fee base and never touches the seller's share.
	discountApplied := desiredDiscount
	if discountApplied > feeBase {
		discountApplied = feeBase
	}

	feeFinal := feeBase - discountApplied
	if feeFinal < 0 {
		feeFinal = 0
	}

	var commission int64
	if input.PartnerCommissionBps != nil {
		commission = roundBps(feeFinal, *input.PartnerCommissionBps)
	}

	finalTotal := input.OriginalTotalCents - discountApplied
	if finalTotal < 0 {
		finalTotal = 0
	}

	return Totals{
		PlatformFeeBaseCents:   feeBase,
		DiscountAppliedCents:   discountApplied,
		PlatformFeeFinalCents:  feeFinal,
		PartnerCommissionCents: commission,
		FinalTotalCents:        finalTotal,
		SellerNetCents:         input.OriginalTotalCents - feeBase,
	}
}

// roundBps applies a basis-point rate to a cent amount, rounding half-up.
func roundBps(amountCents int64, bps int) int64 {
	return decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}
