package ledger

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
)

// Summary is the aggregated wallet view for one currency. Balances are
// always computed fresh from entries; no stored running balance exists.
type Summary struct {
	Currency       enums.Currency `json:"currency"`
	HeldCents      int64          `json:"held_cents"`
	AvailableCents int64          `json:"available_cents"`
	ReversedCents  int64          `json:"reversed_cents"`
}

// Summarize aggregates the user's entries into a single-currency summary.
// When entries span multiple currencies only the first-seen currency is
// reported; SummarizeAll exposes the rest.
func (s *service) Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	summaries, err := s.SummarizeAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return &Summary{Currency: enums.CurrencyBRL}, nil
	}
	return &summaries[0], nil
}

// SummarizeAll returns one summary per currency, ordered by the earliest
// entry in each currency.
func (s *service) SummarizeAll(ctx context.Context, userID uuid.UUID) ([]Summary, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	rows, err := s.repo.AggregateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ledger entries")
	}

	byCurrency := make(map[enums.Currency]*Summary)
	firstSeen := make(map[enums.Currency]int64)
	for _, row := range rows {
		summary, ok := byCurrency[row.Currency]
		if !ok {
			summary = &Summary{Currency: row.Currency}
			byCurrency[row.Currency] = summary
			firstSeen[row.Currency] = row.FirstSeen.UnixNano()
		}
		if ts := row.FirstSeen.UnixNano(); ts < firstSeen[row.Currency] {
			firstSeen[row.Currency] = ts
		}

		signed := row.TotalCents * row.Type.Sign()
		switch row.State {
		case enums.LedgerEntryStateHeld:
			summary.HeldCents += signed
		case enums.LedgerEntryStateAvailable:
			summary.AvailableCents += signed
		case enums.LedgerEntryStateReversed:
			summary.ReversedCents += signed
		}
	}

	summaries := make([]Summary, 0, len(byCurrency))
	for _, summary := range byCurrency {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return firstSeen[summaries[i].Currency] < firstSeen[summaries[j].Currency]
	})
	return summaries, nil
}
