package pix

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/internal/attribution"
	"github.com/matheuslopes/garimpei-backend/internal/coupons"
	"github.com/matheuslopes/garimpei-backend/internal/ledger"
	"github.com/matheuslopes/garimpei-backend/internal/orders"
	"github.com/matheuslopes/garimpei-backend/pkg/db"
	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
	"github.com/matheuslopes/garimpei-backend/pkg/metrics"
	"github.com/matheuslopes/garimpei-backend/pkg/outbox"
	pkgredis "github.com/matheuslopes/garimpei-backend/pkg/redis"
)

const idempotencyScope = "pix"

// Outcome labels for webhook metrics.
const (
	outcomeProcessed = "processed"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// PaymentConfirmation is the payload the PIX gateway delivers when a charge
// settles. Txid is the gateway's end-to-end transaction identifier.
type PaymentConfirmation struct {
	Txid      string
	PaymentID *string
	PaidAt    time.Time
}

// Config carries the platform parameters the bridge prices orders with.
type Config struct {
	PlatformFeeBps int
	IdempotencyTTL time.Duration
}

// Service bridges gateway payment confirmations into the money core.
type Service interface {
	HandlePaymentConfirmed(ctx context.Context, confirmation PaymentConfirmation) error
}

type service struct {
	ordersRepo  orders.Repository
	coupons     coupons.Service
	attribution attribution.Service
	ledger      ledger.Service
	tx          db.TxRunner
	events      *outbox.Service
	guard       pkgredis.IdempotencyStore
	metrics     *metrics.CoreMetrics
	logg        *logger.Logger
	cfg         Config
}

// NewService wires the PIX payment bridge. The idempotency guard may be nil;
// the in-transaction status guard still prevents double credits on its own.
func NewService(
	ordersRepo orders.Repository,
	couponsSvc coupons.Service,
	attributionSvc attribution.Service,
	ledgerSvc ledger.Service,
	tx db.TxRunner,
	events *outbox.Service,
	guard pkgredis.IdempotencyStore,
	coreMetrics *metrics.CoreMetrics,
	logg *logger.Logger,
	cfg Config,
) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if couponsSvc == nil {
		return nil, fmt.Errorf("coupons service required")
	}
	if attributionSvc == nil {
		return nil, fmt.Errorf("attribution service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cfg.PlatformFeeBps < 0 || cfg.PlatformFeeBps > 10000 {
		return nil, fmt.Errorf("platform fee bps out of range: %d", cfg.PlatformFeeBps)
	}
	return &service{
		ordersRepo:  ordersRepo,
		coupons:     couponsSvc,
		attribution: attributionSvc,
		ledger:      ledgerSvc,
		tx:          tx,
		events:      events,
		guard:       guard,
		metrics:     coreMetrics,
		logg:        logg,
		cfg:         cfg,
	}, nil
}

func (s *service) HandlePaymentConfirmed(ctx context.Context, confirmation PaymentConfirmation) error {
	started := time.Now()
	outcome, err := s.handle(ctx, confirmation)
	s.metrics.IncWebhookEvent(outcome)
	s.metrics.ObserveWebhookDuration(outcome, time.Since(started))
	return err
}

func (s *service) handle(ctx context.Context, confirmation PaymentConfirmation) (string, error) {
	txid := strings.TrimSpace(confirmation.Txid)
	if txid == "" {
		return outcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "txid is required")
	}
	if confirmation.PaidAt.IsZero() {
		return outcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "paidAt is required")
	}

	released, claimed, err := s.claim(ctx, txid)
	if err == nil && !claimed {
		return outcomeDuplicate, nil
	}

	order, err := s.ordersRepo.FindByTxid(ctx, txid)
	if err != nil {
		released(ctx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return outcomeFailed, pkgerrors.New(pkgerrors.CodeNotFound, "no order for txid")
		}
		return outcomeFailed, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by txid")
	}

	// The gateway redelivers; a paid (or later) order means this txid was
	// already credited and the delivery is a duplicate, not an error.
	if order.Status != enums.OrderStatusPendingPayment && order.Status != enums.OrderStatusCreated {
		return outcomeDuplicate, nil
	}

	if err := s.process(ctx, order, confirmation); err != nil {
		released(ctx)
		return outcomeFailed, err
	}
	return outcomeProcessed, nil
}

// claim takes the redis idempotency slot for the txid. The returned release
// function frees the slot again when processing fails, so a gateway retry
// gets another chance.
func (s *service) claim(ctx context.Context, txid string) (func(context.Context), bool, error) {
	noop := func(context.Context) {}
	if s.guard == nil {
		return noop, true, nil
	}

	key := s.guard.IdempotencyKey(idempotencyScope, txid)
	ok, err := s.guard.SetNX(ctx, key, "1", s.cfg.IdempotencyTTL)
	if err != nil {
		// Redis being down must not drop payments; the status guard inside
		// the transaction still prevents double credits.
		if s.logg != nil {
			s.logg.Warn(ctx, "pix idempotency guard unavailable")
		}
		return noop, true, err
	}
	release := func(ctx context.Context) {
		if delErr := s.guard.Del(ctx, key); delErr != nil && s.logg != nil {
			s.logg.Warn(ctx, "releasing pix idempotency key failed")
		}
	}
	return release, ok, nil
}

func (s *service) process(ctx context.Context, order *models.Order, confirmation PaymentConfirmation) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		input := attribution.TotalsInput{
			OriginalTotalCents: order.TotalCents,
			PlatformFeeBps:     s.cfg.PlatformFeeBps,
		}

		var partnerID *uuid.UUID
		var couponCode *string
		if order.CouponCode != nil {
			coupon, err := s.coupons.GetValidCoupon(ctx, *order.CouponCode)
			if err != nil {
				return err
			}
			if err := s.coupons.ConsumeUsage(ctx, tx, coupon); err != nil {
				return err
			}
			input.DiscountBps = coupon.DiscountBps
			input.DiscountCents = coupon.DiscountCents
			couponCode = &coupon.Code
			if coupon.PartnerID != nil && coupon.Partner != nil {
				partnerID = coupon.PartnerID
				input.PartnerCommissionBps = &coupon.Partner.CommissionBps
			}
		}

		totals := attribution.CalculateTotals(input)

		if _, err := s.attribution.Record(ctx, tx, attribution.RecordInput{
			OrderID:    order.ID,
			PartnerID:  partnerID,
			CouponCode: couponCode,
			Totals:     totals,
			Currency:   order.Currency,
		}); err != nil {
			return err
		}

		extra := map[string]interface{}{"paid_at": confirmation.PaidAt}
		if confirmation.PaymentID != nil {
			extra["payment_id"] = *confirmation.PaymentID
		}
		ok, err := s.ordersRepo.WithTx(tx).TransitionStatus(ctx, order.ID, orders.Transition{
			From:    order.Status,
			To:      enums.OrderStatusPaid,
			Version: order.Version,
			Extra:   extra,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		if totals.SellerNetCents > 0 {
			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				UserID:      order.SellerID,
				Type:        enums.LedgerEntryTypeCredit,
				State:       enums.LedgerEntryStateHeld,
				Source:      enums.LedgerSourceOrderPayment,
				AmountCents: totals.SellerNetCents,
				Currency:    order.Currency,
				Description: "escrow hold for paid order",
				OrderID:     &order.ID,
				PaymentID:   confirmation.PaymentID,
			}); err != nil {
				return err
			}
		}
		if partnerID != nil && totals.PartnerCommissionCents > 0 {
			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				UserID:      *partnerID,
				Type:        enums.LedgerEntryTypeCredit,
				State:       enums.LedgerEntryStateHeld,
				Source:      enums.LedgerSourcePartnerCommission,
				AmountCents: totals.PartnerCommissionCents,
				Currency:    order.Currency,
				Description: "commission hold for paid order",
				OrderID:     &order.ID,
				PaymentID:   confirmation.PaymentID,
			}); err != nil {
				return err
			}
		}

		if s.events != nil {
			return s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: map[string]any{
					"txid":    confirmation.Txid,
					"paid_at": confirmation.PaidAt,
				},
				Version: 1,
			})
		}
		return nil
	})
}
