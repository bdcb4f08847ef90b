package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/metrics"
	"github.com/matheuslopes/garimpei-backend/pkg/pagination"
)

// Service defines write and read operations over the ledger.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.LedgerEntry, error)
	List(ctx context.Context, userID uuid.UUID, filter Filter, params pagination.Params) ([]models.LedgerEntry, string, error)
	Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error)
	SummarizeAll(ctx context.Context, userID uuid.UUID) ([]Summary, error)
}

type service struct {
	repo    Repository
	metrics *metrics.CoreMetrics
}

// AppendInput captures the immutable data a ledger entry requires. The
// caller's transaction ties the entry to the business event that caused it.
type AppendInput struct {
	UserID      uuid.UUID
	Type        enums.LedgerEntryType
	State       enums.LedgerEntryState
	Source      enums.LedgerSource
	AmountCents int64
	Currency    enums.Currency
	Description string
	OrderID     *uuid.UUID
	PaymentID   *string
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository, coreMetrics *metrics.CoreMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, metrics: coreMetrics}, nil
}

func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.LedgerEntry, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry type %q", input.Type))
	}
	if !input.State.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry state %q", input.State))
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry source %q", input.Source))
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}

	entry := &models.LedgerEntry{
		ID:          uuid.New(),
		UserID:      input.UserID,
		Type:        input.Type,
		State:       input.State,
		Source:      input.Source,
		AmountCents: input.AmountCents,
		Currency:    input.Currency,
		Description: input.Description,
		OrderID:     input.OrderID,
		PaymentID:   input.PaymentID,
	}

	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}
	s.metrics.IncLedgerEntry(string(input.Source), string(input.Type))
	return entry, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, filter Filter, params pagination.Params) ([]models.LedgerEntry, string, error) {
	if userID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	entries, err := s.repo.ListByUser(ctx, userID, filter, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return entries, nextCursor, nil
}
