package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
)

// Repository persists users for the money core: lookups plus the two
// independent block toggles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool, reason *string, at *time.Time) error
	SetPayoutBlocked(ctx context.Context, id uuid.UUID, blocked bool, reason *string, at *time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a user repository bound to the given database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool, reason *string, at *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"blocked":      blocked,
			"blocked_at":   at,
			"block_reason": reason,
		}).Error
}

func (r *repository) SetPayoutBlocked(ctx context.Context, id uuid.UUID, blocked bool, reason *string, at *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"payout_blocked":      blocked,
			"payout_blocked_at":   at,
			"payout_block_reason": reason,
		}).Error
}
