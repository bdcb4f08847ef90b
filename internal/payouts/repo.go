package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
)

// Transition describes a guarded payout status change.
type Transition struct {
	From    enums.PayoutStatus
	To      enums.PayoutStatus
	Version int
	Extra   map[string]interface{}
}

// Repository persists payouts. Status changes are versioned the same way
// order transitions are.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	TransitionStatus(ctx context.Context, payoutID uuid.UUID, transition Transition) (bool, error)
	IncrementVerifyAttempts(ctx context.Context, payoutID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the given database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) TransitionStatus(ctx context.Context, payoutID uuid.UUID, transition Transition) (bool, error) {
	updates := map[string]interface{}{
		"status":     transition.To,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	for column, value := range transition.Extra {
		updates[column] = value
	}

	result := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", payoutID).
		Where("status = ?", transition.From).
		Where("version = ?", transition.Version).
		UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) IncrementVerifyAttempts(ctx context.Context, payoutID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", payoutID).
		UpdateColumn("verify_attempts", gorm.Expr("verify_attempts + 1")).Error
}
