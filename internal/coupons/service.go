package coupons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/cache"
	"github.com/matheuslopes/garimpei-backend/pkg/db"
	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
)

// PartnerFinder resolves referenced partners on coupon creation. Implemented
// by the partners repository.
type PartnerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
}

// PublicCoupon is the public validation answer. It deliberately omits the
// usage counters and the owning partner.
type PublicCoupon struct {
	Code          string `json:"code"`
	DiscountBps   *int   `json:"discount_bps,omitempty"`
	DiscountCents *int64 `json:"discount_cents,omitempty"`
}

// CreateInput holds the admin coupon creation payload.
type CreateInput struct {
	Code          string
	PartnerID     *uuid.UUID
	DiscountBps   *int
	DiscountCents *int64
	StartsAt      *time.Time
	EndsAt        *time.Time
	MaxUses       *int
}

// Service guards coupon redemption and serves public validation.
type Service interface {
	GetValidCoupon(ctx context.Context, code string) (*models.Coupon, error)
	ConsumeUsage(ctx context.Context, tx *gorm.DB, coupon *models.Coupon) error
	ValidateCode(ctx context.Context, code string) (*PublicCoupon, error)
	Create(ctx context.Context, input CreateInput) (*models.Coupon, error)
}

type service struct {
	repo     Repository
	partners PartnerFinder
	cache    cache.Cache
	cacheTTL time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the coupon service. cacheStore may be nil, in which case
// public validation always hits the database.
func NewService(repo Repository, partners PartnerFinder, cacheStore cache.Cache, cacheTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	return &service{
		repo:     repo,
		partners: partners,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// NormalizeCode canonicalizes user-entered coupon codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) GetValidCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if !coupon.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon is not active")
	}
	if coupon.PartnerID != nil && (coupon.Partner == nil || !coupon.Partner.Active) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon partner is not active")
	}
	if coupon.DiscountBps == nil && coupon.DiscountCents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon has no discount configured")
	}

	now := s.now()
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon is not yet active")
	}
	if coupon.EndsAt != nil && now.After(*coupon.EndsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon has expired")
	}
	if coupon.MaxUses != nil && coupon.UsesCount >= *coupon.MaxUses {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon usage limit reached")
	}
	return coupon, nil
}

// ConsumeUsage is the authoritative redemption step. The read-time checks in
// GetValidCoupon can go stale under concurrent checkouts; only the
// conditional write decides who gets the last use.
func (s *service) ConsumeUsage(ctx context.Context, tx *gorm.DB, coupon *models.Coupon) error {
	if coupon == nil || coupon.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon is required")
	}

	consumed, err := s.repo.WithTx(tx).ConsumeUsage(ctx, coupon)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume coupon usage")
	}
	if !consumed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon usage limit reached")
	}
	return nil
}

func (s *service) ValidateCode(ctx context.Context, code string) (*PublicCoupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	key := "coupons:public:" + normalized
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var public PublicCoupon
			if err := json.Unmarshal([]byte(raw), &public); err == nil {
				return &public, nil
			}
		}
	}

	coupon, err := s.GetValidCoupon(ctx, normalized)
	if err != nil {
		return nil, err
	}

	public := &PublicCoupon{
		Code:          coupon.Code,
		DiscountBps:   coupon.DiscountBps,
		DiscountCents: coupon.DiscountCents,
	}
	if s.cache != nil {
		if raw, err := json.Marshal(public); err == nil {
			if err := s.cache.Put(ctx, key, string(raw), s.cacheTTL); err != nil && s.logg != nil {
				s.logg.Warn(ctx, "caching coupon validation failed")
			}
		}
	}
	return public, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if input.DiscountBps == nil && input.DiscountCents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a discount is required")
	}
	if input.DiscountBps != nil && input.DiscountCents != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "set either a percentage or a fixed discount, not both")
	}
	if input.DiscountBps != nil && (*input.DiscountBps <= 0 || *input.DiscountBps > 10000) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount bps must be between 1 and 10000")
	}
	if input.DiscountCents != nil && *input.DiscountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fixed discount must be positive")
	}
	if input.MaxUses != nil && *input.MaxUses <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max uses must be positive")
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon window ends before it starts")
	}

	if input.PartnerID != nil {
		if s.partners == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner coupons are not supported")
		}
		partner, err := s.partners.FindByID(ctx, *input.PartnerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
		}
		if !partner.Active {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "partner is not active")
		}
	}

	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		PartnerID:     input.PartnerID,
		Active:        true,
		DiscountBps:   input.DiscountBps,
		DiscountCents: input.DiscountCents,
		StartsAt:      input.StartsAt,
		EndsAt:        input.EndsAt,
		MaxUses:       input.MaxUses,
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "invalidating coupon cache failed")
		}
	}
	return coupon, nil
}
