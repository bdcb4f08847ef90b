package outbox

import (
	"errors"

	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes the event row inside the caller's transaction so the event
// commits or rolls back with the business change it describes.
func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&event).Error
}
