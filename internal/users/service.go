package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/db"
	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/outbox"
)

// Service exposes user lookups and the admin block toggles.
type Service interface {
	Create(ctx context.Context, email string, role enums.UserRole) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetBlocked(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID, blocked bool, reason string) error
	SetPayoutBlocked(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID, blocked bool, reason string) error
}

type service struct {
	repo   Repository
	tx     db.TxRunner
	events *outbox.Service
	now    func() time.Time
}

// NewService wires the user service.
func NewService(repo Repository, tx db.TxRunner, events *outbox.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, events: events, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, email string, role enums.UserRole) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}

	user := &models.User{
		ID:    uuid.New(),
		Email: email,
		Role:  role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return user, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) SetBlocked(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID, blocked bool, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "a reason is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	eventType := enums.EventUserUnblocked
	if blocked {
		eventType = enums.EventUserBlocked
	}
	reason = strings.TrimSpace(reason)
	at, storedReason := s.blockColumns(blocked, reason)

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SetBlocked(ctx, id, blocked, storedReason, at); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle user block")
		}
		return s.emit(ctx, tx, eventType, id, actor, map[string]any{
			"blocked": blocked,
			"reason":  reason,
		})
	})
}

func (s *service) SetPayoutBlocked(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID, blocked bool, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "a reason is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	reason = strings.TrimSpace(reason)
	at, storedReason := s.blockColumns(blocked, reason)

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SetPayoutBlocked(ctx, id, blocked, storedReason, at); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle user payout block")
		}
		return s.emit(ctx, tx, enums.EventPayoutBlockToggled, id, actor, map[string]any{
			"blocked": blocked,
			"reason":  reason,
			"scope":   enums.PayoutScopeUser,
		})
	})
}

func (s *service) blockColumns(blocked bool, reason string) (*time.Time, *string) {
	if !blocked {
		return nil, nil
	}
	now := s.now()
	return &now, &reason
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, id uuid.UUID, actor *outbox.ActorRef, data map[string]any) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateUser,
		AggregateID:   id,
		Actor:         actor,
		Data:          data,
		Version:       1,
	})
}
