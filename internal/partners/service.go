package partners

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

// CreateInput holds the admin partner creation payload.
type CreateInput struct {
	Slug          string
	Name          string
	CommissionBps int
}

// ClickInput records one referral click.
type ClickInput struct {
	Slug     string
	Referrer *string
	IPHash   *string
}

// Service manages partners, their referral clicks, and admin toggles.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Partner, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	GetBySlug(ctx context.Context, slug string) (*models.Partner, error)
	RegisterClick(ctx context.Context, input ClickInput) error
	SetActive(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID, active bool, reason string) error
	SetPayoutBlocked(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID, blocked bool, reason string) error
}

type service struct {
	repo   Repository
	tx     db.TxRunner
	events *outbox.Service
	now    func() time.Time
}

// NewService wires the partner service.
func NewService(repo Repository, tx db.TxRunner, events *outbox.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("partners repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, events: events, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Partner, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner slug is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner name is required")
	}
	if input.CommissionBps < 0 || input.CommissionBps > 10000 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission bps must be between 0 and 10000")
	}

	partner := &models.Partner{
		ID:            uuid.New(),
		Slug:          slug,
		Name:          strings.TrimSpace(input.Name),
		CommissionBps: input.CommissionBps,
		Active:        true,
	}
	if err := s.repo.Create(ctx, partner); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "partner slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create partner")
	}
	return partner, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	partner, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}
	return partner, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*models.Partner, error) {
	partner, err := s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}
	return partner, nil
}

func (s *service) RegisterClick(ctx context.Context, input ClickInput) error {
	partner, err := s.GetBySlug(ctx, input.Slug)
	if err != nil {
		return err
	}
	if !partner.Active {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "partner is not active")
	}

	click := &models.PartnerClick{
		ID:        uuid.New(),
		PartnerID: partner.ID,
		Referrer:  input.Referrer,
		IPHash:    input.IPHash,
	}
	if err := s.repo.CreateClick(ctx, click); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record partner click")
	}
	return nil
}

func (s *service) SetActive(ctx context.Context, actor *outbox.ActorRef, id uuid.UUID, active bool, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "a reason is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SetActive(ctx, id, active); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle partner")
		}
		return s.emit(ctx, tx, enums.EventPartnerBlockToggled, id, actor, map[string]any{
			"active": active,
			"reason": reason,
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

	var at *time.Time
	var storedReason *string
	if blocked {
		now := s.now()
		at = &now
		trimmed := strings.TrimSpace(reason)
		storedReason = &trimmed
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SetPayoutBlocked(ctx, id, blocked, storedReason, at); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle partner payout block")
		}
		return s.emit(ctx, tx, enums.EventPayoutBlockToggled, id, actor, map[string]any{
			"blocked": blocked,
			"reason":  reason,
			"scope":   enums.PayoutScopePartner,
		})
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, id uuid.UUID, actor *outbox.ActorRef, data map[string]any) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePartner,
		AggregateID:   id,
		Actor:         actor,
		Data:          data,
		Version:       1,
	})
}
