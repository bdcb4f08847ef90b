package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	"github.com/matheuslopes/garimpei-backend/pkg/pagination"
)

// Filter narrows entry listings by date range and source.
type Filter struct {
	From   *time.Time
	To     *time.Time
	Source *enums.LedgerSource
}

// AggregateRow is one (state, type, currency) sum over a user's entries.
type AggregateRow struct {
	State      enums.LedgerEntryState
	Type       enums.LedgerEntryType
	Currency   enums.Currency
	TotalCents int64
	FirstSeen  time.Time
}

// Repository manages persistence for ledger entries. There is deliberately
// no update or delete operation: entries are append-only facts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID, filter Filter, params pagination.Params) ([]models.LedgerEntry, error)
	AggregateByUser(ctx context.Context, userID uuid.UUID) ([]AggregateRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, filter Filter, params pagination.Params) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID)

	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []models.LedgerEntry
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// aggregateScan mirrors AggregateRow with first_seen as text. Aggregate
// columns lose their declared type, so drivers hand the timestamp back as
// a raw string that has to be parsed on the way out.
type aggregateScan struct {
	State      enums.LedgerEntryState `gorm:"column:state"`
	Type       enums.LedgerEntryType  `gorm:"column:type"`
	Currency   enums.Currency         `gorm:"column:currency"`
	TotalCents int64                  `gorm:"column:total_cents"`
	FirstSeen  string                 `gorm:"column:first_seen"`
}

var firstSeenLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseFirstSeen(raw string) (time.Time, error) {
	var err error
	for _, layout := range firstSeenLayouts {
		var ts time.Time
		if ts, err = time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse first_seen %q: %w", raw, err)
}

func (r *repository) AggregateByUser(ctx context.Context, userID uuid.UUID) ([]AggregateRow, error) {
	var scanned []aggregateScan
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("state, type, currency, SUM(amount_cents) AS total_cents, MIN(created_at) AS first_seen").
		Where("user_id = ?", userID).
		Group("state").Group("type").Group("currency").
		Find(&scanned).Error
	if err != nil {
		return nil, err
	}

	rows := make([]AggregateRow, 0, len(scanned))
	for _, row := range scanned {
		firstSeen, err := parseFirstSeen(row.FirstSeen)
		if err != nil {
			return nil, err
		}
		rows = append(rows, AggregateRow{
			State:      row.State,
			Type:       row.Type,
			Currency:   row.Currency,
			TotalCents: row.TotalCents,
			FirstSeen:  firstSeen,
		})
	}
	return rows, nil
}
