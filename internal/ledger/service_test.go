package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn    func(ctx context.Context, entry *models.LedgerEntry) error
	listFn      func(ctx context.Context, userID uuid.UUID, filter Filter, params pagination.Params) ([]models.LedgerEntry, error)
	aggregateFn func(ctx context.Context, userID uuid.UUID) ([]AggregateRow, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter Filter, params pagination.Params) ([]models.LedgerEntry, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, filter, params)
	}
	return nil, nil
}

func (f *fakeRepository) AggregateByUser(ctx context.Context, userID uuid.UUID) ([]AggregateRow, error) {
	if f.aggregateFn != nil {
		return f.aggregateFn(ctx, userID)
	}
	return nil, nil
}

func TestService_Append(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	orderID := uuid.New()
	input := AppendInput{
		UserID:      uuid.New(),
		Type:        enums.LedgerEntryTypeCredit,
		State:       enums.LedgerEntryStateHeld,
		Source:      enums.LedgerSourceOrderPayment,
		AmountCents: 9500,
		Currency:    enums.CurrencyBRL,
		Description: "escrow credit for order",
		OrderID:     &orderID,
	}

	var created *models.LedgerEntry
	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		created = entry
		return nil
	}

	got, err := svc.Append(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if created == nil {
		t.Fatal("expected ledger entry to be created")
	}
	if created.UserID != input.UserID || created.Type != input.Type || created.AmountCents != input.AmountCents {
		t.Fatalf("unexpected ledger entry data: %+v", created)
	}
	if created.OrderID == nil || *created.OrderID != orderID {
		t.Fatalf("missing order reference: %+v", created)
	}
	if got != created {
		t.Fatal("service should return created entry")
	}
}

func TestService_AppendValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	valid := AppendInput{
		UserID:      uuid.New(),
		Type:        enums.LedgerEntryTypeCredit,
		State:       enums.LedgerEntryStateAvailable,
		Source:      enums.LedgerSourceManualAdjustment,
		AmountCents: 100,
		Currency:    enums.CurrencyBRL,
	}

	tests := []struct {
		name   string
		mutate func(*AppendInput)
	}{
		{"missing user id", func(in *AppendInput) { in.UserID = uuid.Nil }},
		{"zero amount", func(in *AppendInput) { in.AmountCents = 0 }},
		{"negative amount", func(in *AppendInput) { in.AmountCents = -50 }},
		{"invalid type", func(in *AppendInput) { in.Type = "wire" }},
		{"invalid state", func(in *AppendInput) { in.State = "limbo" }},
		{"invalid source", func(in *AppendInput) { in.Source = "lottery" }},
		{"invalid currency", func(in *AppendInput) { in.Currency = "XYZ" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			_, err := svc.Append(context.Background(), nil, input)
			if err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestService_AppendRepoError(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	expectedErr := errors.New("boom")
	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		return expectedErr
	}

	_, err = svc.Append(context.Background(), nil, AppendInput{
		UserID:      uuid.New(),
		Type:        enums.LedgerEntryTypeDebit,
		State:       enums.LedgerEntryStateAvailable,
		Source:      enums.LedgerSourcePayout,
		AmountCents: 100,
		Currency:    enums.CurrencyBRL,
	})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}

func TestService_ListPagination(t *testing.T) {
	userID := uuid.New()
	entries := make([]models.LedgerEntry, 0, 26)
	for i := 0; i < 26; i++ {
		entries = append(entries, models.LedgerEntry{
			ID:          uuid.New(),
			UserID:      userID,
			Type:        enums.LedgerEntryTypeCredit,
			State:       enums.LedgerEntryStateAvailable,
			Source:      enums.LedgerSourceOrderPayment,
			AmountCents: 100,
			Currency:    enums.CurrencyBRL,
		})
	}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, id uuid.UUID, filter Filter, params pagination.Params) ([]models.LedgerEntry, error) {
			return entries, nil
		},
	}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	page, nextCursor, err := svc.List(context.Background(), userID, Filter{}, pagination.Params{Limit: 25})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(page) != 25 {
		t.Fatalf("expected 25 entries, got %d", len(page))
	}
	if nextCursor == "" {
		t.Fatal("expected next cursor when more rows exist")
	}
}
