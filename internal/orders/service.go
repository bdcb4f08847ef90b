package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/internal/attribution"
	"github.com/matheuslopes/garimpei-backend/internal/ledger"
	"github.com/matheuslopes/garimpei-backend/pkg/db"
	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/outbox"
)

// CreateInput holds the fields needed to register an order with the money
// core. Checkout itself lives upstream; this service only tracks the order
// through its payment lifecycle.
type CreateInput struct {
	BuyerID    uuid.UUID
	SellerID   uuid.UUID
	TotalCents int64
	Currency   enums.Currency
	CouponCode *string
	Txid       *string
}

// Service drives order status transitions and the escrow moves tied to them.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, actor *outbox.ActorRef, orderID uuid.UUID) (*models.Order, error)
	OpenDispute(ctx context.Context, actor *outbox.ActorRef, orderID uuid.UUID) (*models.Order, error)
	ResolveDispute(ctx context.Context, actor *outbox.ActorRef, orderID uuid.UUID, refund bool) (*models.Order, error)
}

type service struct {
	repo        Repository
	ledger      ledger.Service
	attribution attribution.Service
	tx          db.TxRunner
	events      *outbox.Service
	now         func() time.Time
}

// NewService wires the order service.
func NewService(repo Repository, ledgerSvc ledger.Service, attributionSvc attribution.Service, tx db.TxRunner, events *outbox.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if attributionSvc == nil {
		return nil, fmt.Errorf("attribution service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:        repo,
		ledger:      ledgerSvc,
		attribution: attributionSvc,
		tx:          tx,
		events:      events,
		now:         time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil || input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller are required")
	}
	if input.TotalCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}
	if input.Txid != nil && strings.TrimSpace(*input.Txid) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "txid must not be blank")
	}

	order := &models.Order{
		ID:         uuid.New(),
		BuyerID:    input.BuyerID,
		SellerID:   input.SellerID,
		TotalCents: input.TotalCents,
		Currency:   input.Currency,
		Status:     enums.OrderStatusPendingPayment,
		CouponCode: input.CouponCode,
		Txid:       input.Txid,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "ux_orders_txid") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "txid already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// ConfirmDelivery moves a paid order to delivered and releases the held
// escrow: the seller's net and any partner commission each flip from HELD
// to AVAILABLE inside the same transaction as the status change.
func (s *service) ConfirmDelivery(ctx context.Context, actor *outbox.ActorRef, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s, expected %s", order.Status, enums.OrderStatusPaid))
	}

	event, err := s.attribution.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	deliveredAt := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, orderID, Transition{
			From:    enums.OrderStatusPaid,
			To:      enums.OrderStatusDelivered,
			Version: order.Version,
			Extra:   map[string]interface{}{"delivered_at": deliveredAt},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}
		if err := s.moveEscrow(ctx, tx, order, event, enums.LedgerEntryStateAvailable, "escrow released on delivery"); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventOrderDelivered, order, actor, map[string]any{
			"delivered_at": deliveredAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// OpenDispute freezes a paid order in the disputed state. No ledger entry
// is written; the escrow simply stays held until the dispute resolves.
func (s *service) OpenDispute(ctx context.Context, actor *outbox.ActorRef, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s, expected %s", order.Status, enums.OrderStatusPaid))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, orderID, Transition{
			From:    enums.OrderStatusPaid,
			To:      enums.OrderStatusDisputed,
			Version: order.Version,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// ResolveDispute closes a dispute either by refunding (escrow flips from
// HELD to REVERSED) or by releasing the funds as a normal delivery.
func (s *service) ResolveDispute(ctx context.Context, actor *outbox.ActorRef, orderID uuid.UUID, refund bool) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusDisputed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s, expected %s", order.Status, enums.OrderStatusDisputed))
	}

	event, err := s.attribution.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		transition := Transition{From: enums.OrderStatusDisputed, Version: order.Version}
		if refund {
			transition.To = enums.OrderStatusRefunded
		} else {
			transition.To = enums.OrderStatusDelivered
			transition.Extra = map[string]interface{}{"delivered_at": s.now()}
		}

		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, orderID, transition)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		if refund {
			if err := s.moveEscrow(ctx, tx, order, event, enums.LedgerEntryStateReversed, "escrow reversed on refund"); err != nil {
				return err
			}
			return s.emit(ctx, tx, enums.EventOrderRefunded, order, actor, map[string]any{
				"refund": true,
			})
		}
		if err := s.moveEscrow(ctx, tx, order, event, enums.LedgerEntryStateAvailable, "escrow released on dispute resolution"); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventOrderDelivered, order, actor, map[string]any{
			"resolved_dispute": true,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// moveEscrow debits the held balances created at payment time and credits
// them back in the target state. Seller net and partner commission move as
// separate entry pairs so each party's wallet stays independently auditable.
func (s *service) moveEscrow(ctx context.Context, tx *gorm.DB, order *models.Order, event *models.CommissionEvent, target enums.LedgerEntryState, description string) error {
	sellerNet := order.TotalCents - event.PlatformFeeBaseCents

	moves := []struct {
		userID uuid.UUID
		amount int64
		source enums.LedgerSource
	}{
		{order.SellerID, sellerNet, enums.LedgerSourceOrderPayment},
	}
	if event.PartnerID != nil && event.CommissionCents > 0 {
		moves = append(moves, struct {
			userID uuid.UUID
			amount int64
			source enums.LedgerSource
		}{*event.PartnerID, event.CommissionCents, enums.LedgerSourcePartnerCommission})
	}

	for _, move := range moves {
		if move.amount <= 0 {
			continue
		}
		source := move.source
		if target == enums.LedgerEntryStateReversed {
			source = enums.LedgerSourceRefund
		}
		if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			UserID:      move.userID,
			Type:        enums.LedgerEntryTypeDebit,
			State:       enums.LedgerEntryStateHeld,
			Source:      source,
			AmountCents: move.amount,
			Currency:    order.Currency,
			Description: description,
			OrderID:     &order.ID,
		}); err != nil {
			return err
		}
		if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			UserID:      move.userID,
			Type:        enums.LedgerEntryTypeCredit,
			State:       target,
			Source:      source,
			AmountCents: move.amount,
			Currency:    order.Currency,
			Description: description,
			OrderID:     &order.ID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order, actor *outbox.ActorRef, data map[string]any) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data:          data,
		Version:       1,
	})
}
