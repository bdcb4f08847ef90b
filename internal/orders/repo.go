package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
)

// Transition describes a guarded status change. Extra columns (timestamps,
// payment ids) ride along in the same UPDATE.
type Transition struct {
	From    enums.OrderStatus
	To      enums.OrderStatus
	Version int
	Extra   map[string]interface{}
}

// Repository persists orders. Status changes go through TransitionStatus
// only; there is no unconditional status setter.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByTxid(ctx context.Context, txid string) (*models.Order, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, transition Transition) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the given database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTxid(ctx context.Context, txid string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("txid = ?", txid).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionStatus performs the optimistic status update. Both the expected
// status and the version read by the caller must still hold; losing either
// race yields zero affected rows and the caller maps that to a conflict.
func (r *repository) TransitionStatus(ctx context.Context, orderID uuid.UUID, transition Transition) (bool, error) {
	updates := map[string]interface{}{
		"status":     transition.To,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	for column, value := range transition.Extra {
		updates[column] = value
	}

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Where("status = ?", transition.From).
		Where("version = ?", transition.Version).
		UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
