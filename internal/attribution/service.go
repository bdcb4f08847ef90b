package attribution

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db"
	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
)

// ClickCounter exposes the partner click volume used in stats. Implemented
// by the partners repository.
type ClickCounter interface {
	CountClicks(ctx context.Context, partnerID uuid.UUID) (int64, error)
}

// PartnerStats is the read-only aggregation exposed to partners and admins.
type PartnerStats struct {
	PartnerID          uuid.UUID `json:"partner_id"`
	Clicks             int64     `json:"clicks"`
	AttributedOrders   int64     `json:"attributed_orders"`
	CommissionSumCents int64     `json:"commission_sum_cents"`
	DiscountTotalCents int64     `json:"discount_total_cents"`
}

// RecordInput captures one order's attribution outcome.
type RecordInput struct {
	OrderID    uuid.UUID
	PartnerID  *uuid.UUID
	CouponCode *string
	Totals     Totals
	Currency   enums.Currency
}

// Service records commission events and serves partner aggregations.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.CommissionEvent, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.CommissionEvent, error)
	PartnerStats(ctx context.Context, partnerID uuid.UUID) (*PartnerStats, error)
}

type service struct {
	repo   Repository
	clicks ClickCounter
}

// NewService wires the attribution service.
func NewService(repo Repository, clicks ClickCounter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("attribution repository required")
	}
	return &service{repo: repo, clicks: clicks}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.CommissionEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}

	event := &models.CommissionEvent{
		ID:                    uuid.New(),
		OrderID:               input.OrderID,
		PartnerID:             input.PartnerID,
		CouponCode:            input.CouponCode,
		DiscountAppliedCents:  input.Totals.DiscountAppliedCents,
		PlatformFeeBaseCents:  input.Totals.PlatformFeeBaseCents,
		PlatformFeeFinalCents: input.Totals.PlatformFeeFinalCents,
		CommissionCents:       input.Totals.PartnerCommissionCents,
		Currency:              input.Currency,
	}

	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		if db.IsUniqueViolation(err, "ux_commission_events_order_id") {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "attribution already recorded for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record commission event")
	}
	return event, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.CommissionEvent, error) {
	event, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commission event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission event")
	}
	return event, nil
}

func (s *service) PartnerStats(ctx context.Context, partnerID uuid.UUID) (*PartnerStats, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id is required")
	}

	row, err := s.repo.StatsByPartner(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate commission events")
	}

	stats := &PartnerStats{
		PartnerID:          partnerID,
		AttributedOrders:   row.AttributedOrders,
		CommissionSumCents: row.CommissionSumCents,
		DiscountTotalCents: row.DiscountTotalCents,
	}
	if s.clicks != nil {
		clicks, err := s.clicks.CountClicks(ctx, partnerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count partner clicks")
		}
		stats.Clicks = clicks
	}
	return stats, nil
}
