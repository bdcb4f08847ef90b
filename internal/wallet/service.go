package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/internal/ledger"
	"github.com/matheuslopes/garimpei-backend/pkg/db"
	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/outbox"
	"github.com/matheuslopes/garimpei-backend/pkg/pagination"
)

// AdjustInput is an admin balance correction: a signed, non-zero amount
// plus a mandatory reason for the audit trail.
type AdjustInput struct {
	UserID      uuid.UUID
	AmountCents int64
	Currency    enums.Currency
	Reason      string
}

// Service is the wallet read surface plus the admin adjustment entry point.
type Service interface {
	Summary(ctx context.Context, userID uuid.UUID) (*ledger.Summary, error)
	Summaries(ctx context.Context, userID uuid.UUID) ([]ledger.Summary, error)
	Entries(ctx context.Context, userID uuid.UUID, filter ledger.Filter, params pagination.Params) ([]models.LedgerEntry, string, error)
	Adjust(ctx context.Context, actor *outbox.ActorRef, input AdjustInput) (*models.LedgerEntry, error)
}

type service struct {
	ledger ledger.Service
	tx     db.TxRunner
	events *outbox.Service
}

// NewService wires the wallet surface on top of the ledger.
func NewService(ledgerSvc ledger.Service, tx db.TxRunner, events *outbox.Service) (Service, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{ledger: ledgerSvc, tx: tx, events: events}, nil
}

func (s *service) Summary(ctx context.Context, userID uuid.UUID) (*ledger.Summary, error) {
	return s.ledger.Summarize(ctx, userID)
}

func (s *service) Summaries(ctx context.Context, userID uuid.UUID) ([]ledger.Summary, error) {
	return s.ledger.SummarizeAll(ctx, userID)
}

func (s *service) Entries(ctx context.Context, userID uuid.UUID, filter ledger.Filter, params pagination.Params) ([]models.LedgerEntry, string, error) {
	return s.ledger.List(ctx, userID, filter, params)
}

// Adjust writes a single manual-adjustment entry. The sign picks the entry
// type; the stored amount is always positive.
func (s *service) Adjust(ctx context.Context, actor *outbox.ActorRef, input AdjustInput) (*models.LedgerEntry, error) {
	if input.AmountCents == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must be non-zero")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a reason is required")
	}

	entryType := enums.LedgerEntryTypeCredit
	amount := input.AmountCents
	if amount < 0 {
		entryType = enums.LedgerEntryTypeDebit
		amount = -amount
	}

	var entry *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = s.ledger.Append(ctx, tx, ledger.AppendInput{
			UserID:      input.UserID,
			Type:        entryType,
			State:       enums.LedgerEntryStateAvailable,
			Source:      enums.LedgerSourceManualAdjustment,
			AmountCents: amount,
			Currency:    input.Currency,
			Description: strings.TrimSpace(input.Reason),
		})
		if err != nil {
			return err
		}
		if s.events == nil {
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBalanceAdjusted,
			AggregateType: enums.AggregateLedger,
			AggregateID:   entry.ID,
			Actor:         actor,
			Data: map[string]any{
				"user_id":      input.UserID,
				"amount_cents": input.AmountCents,
				"reason":       strings.TrimSpace(input.Reason),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
