package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/internal/ledger"
	"github.com/matheuslopes/garimpei-backend/pkg/config"
	"github.com/matheuslopes/garimpei-backend/pkg/db"
	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
	"github.com/matheuslopes/garimpei-backend/pkg/metrics"
	"github.com/matheuslopes/garimpei-backend/pkg/outbox"
	"github.com/matheuslopes/garimpei-backend/pkg/security"
)

// PixRail submits a verified payout to the payment network. Submission
// happens outside any database transaction; the ledger debit is already
// committed when Submit runs.
type PixRail interface {
	Submit(ctx context.Context, payout *models.Payout) (string, error)
}

// CodeDelivery carries verification codes to the requester out of band.
type CodeDelivery interface {
	DeliverEmailCode(ctx context.Context, payout *models.Payout, code string) error
	DeliverWhatsAppCode(ctx context.Context, payout *models.Payout, code string) error
}

// UserGate exposes the user lookups the payout checks need.
type UserGate interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// PartnerGate exposes the partner lookups the payout checks need.
type PartnerGate interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
}

// RequestInput holds a payout draft request.
type RequestInput struct {
	Scope       enums.PayoutScope
	UserID      *uuid.UUID
	PartnerID   *uuid.UUID
	AmountCents int64
	Currency    enums.Currency
	PixKey      string
	PixKeyType  enums.PixKeyType
	Speed       enums.PayoutSpeed
}

// Service drives the payout workflow from request through execution.
type Service interface {
	Request(ctx context.Context, actor *outbox.ActorRef, input RequestInput) (*models.Payout, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	Verify(ctx context.Context, payoutID uuid.UUID, code string) (*models.Payout, error)
	Execute(ctx context.Context, actor *outbox.ActorRef, payoutID uuid.UUID) (*models.Payout, error)
	Reject(ctx context.Context, actor *outbox.ActorRef, payoutID uuid.UUID, reason string) (*models.Payout, error)
	Cancel(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
}

type service struct {
	repo     Repository
	ledger   ledger.Service
	users    UserGate
	partners PartnerGate
	tx       db.TxRunner
	events   *outbox.Service
	rail     PixRail
	delivery CodeDelivery
	metrics  *metrics.CoreMetrics
	logg     *logger.Logger
	cfg      config.PayoutConfig
	security config.SecurityConfig
	now      func() time.Time
}

const verificationCodeDigits = 6

// NewService wires the payout service. rail and delivery may be nil in
// tests; Execute fails fast without a rail.
func NewService(
	repo Repository,
	ledgerSvc ledger.Service,
	users UserGate,
	partners PartnerGate,
	tx db.TxRunner,
	events *outbox.Service,
	rail PixRail,
	delivery CodeDelivery,
	coreMetrics *metrics.CoreMetrics,
	logg *logger.Logger,
	cfg config.PayoutConfig,
	securityCfg config.SecurityConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if users == nil {
		return nil, fmt.Errorf("user gate required")
	}
	if partners == nil {
		return nil, fmt.Errorf("partner gate required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		ledger:   ledgerSvc,
		users:    users,
		partners: partners,
		tx:       tx,
		events:   events,
		rail:     rail,
		delivery: delivery,
		metrics:  coreMetrics,
		logg:     logg,
		cfg:      cfg,
		security: securityCfg,
		now:      time.Now,
	}, nil
}

// Request validates the draft and creates the payout already awaiting its
// verification codes. Every precondition runs before anything is written;
// in particular an insufficient available balance rejects the request with
// no ledger or payout row at all.
func (s *service) Request(ctx context.Context, actor *outbox.ActorRef, input RequestInput) (*models.Payout, error) {
	beneficiary, err := s.validateRequest(ctx, input)
	if err != nil {
		return nil, err
	}

	available, err := s.availableInCurrency(ctx, beneficiary, input.Currency)
	if err != nil {
		return nil, err
	}
	if available < input.AmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient available balance")
	}

	emailCode, err := security.GenerateNumericCode(verificationCodeDigits)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	emailHash, err := security.HashCode(emailCode, s.security)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash verification code")
	}

	var whatsAppCode string
	var whatsAppHash *string
	if s.cfg.WhatsAppCodeFallback {
		whatsAppCode, err = security.GenerateNumericCode(verificationCodeDigits)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
		}
		hash, err := security.HashCode(whatsAppCode, s.security)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash verification code")
		}
		whatsAppHash = &hash
	}

	speed := input.Speed
	if speed == "" {
		speed = enums.PayoutSpeedStandard
	}

	payout := &models.Payout{
		ID:               uuid.New(),
		Scope:            input.Scope,
		UserID:           input.UserID,
		PartnerID:        input.PartnerID,
		AmountCents:      input.AmountCents,
		Currency:         input.Currency,
		PixKey:           strings.TrimSpace(input.PixKey),
		PixKeyType:       input.PixKeyType,
		Status:           enums.PayoutStatusVerificationPending,
		Speed:            speed,
		EmailCodeHash:    emailHash,
		WhatsAppCodeHash: whatsAppHash,
		CodeExpiresAt:    s.now().Add(s.cfg.CodeTTL),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}
		return s.emit(ctx, tx, enums.EventPayoutRequested, payout, actor, map[string]any{
			"amount_cents": payout.AmountCents,
			"scope":        payout.Scope,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.delivery != nil {
		if err := s.delivery.DeliverEmailCode(ctx, payout, emailCode); err != nil && s.logg != nil {
			s.logg.Error(ctx, "delivering payout email code failed", err)
		}
		if whatsAppHash != nil {
			if err := s.delivery.DeliverWhatsAppCode(ctx, payout, whatsAppCode); err != nil && s.logg != nil {
				s.logg.Error(ctx, "delivering payout whatsapp code failed", err)
			}
		}
	}
	return payout, nil
}

func (s *service) validateRequest(ctx context.Context, input RequestInput) (uuid.UUID, error) {
	if !input.Scope.IsValid() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payout scope %q", input.Scope))
	}
	if input.AmountCents < s.cfg.MinAmountCents {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("amount below minimum of %d cents", s.cfg.MinAmountCents))
	}
	if !input.Currency.IsValid() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}
	if strings.TrimSpace(input.PixKey) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "pix key is required")
	}
	if !input.PixKeyType.IsValid() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid pix key type %q", input.PixKeyType))
	}
	if input.Speed != "" && !input.Speed.IsValid() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payout speed %q", input.Speed))
	}

	switch input.Scope {
	case enums.PayoutScopeUser:
		if input.UserID == nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required for user payouts")
		}
		user, err := s.users.FindByID(ctx, *input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if user.Blocked {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "user is blocked")
		}
		if user.PayoutBlocked {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "user payouts are blocked")
		}
		return user.ID, nil
	case enums.PayoutScopePartner:
		if input.PartnerID == nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id is required for partner payouts")
		}
		partner, err := s.partners.FindByID(ctx, *input.PartnerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
			}
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
		}
		if !partner.Active {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeStateConflict, "partner is not active")
		}
		if partner.PayoutBlocked {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "partner payouts are blocked")
		}
		return partner.ID, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payout scope")
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return payout, nil
}

// Verify matches a code against the stored hashes. Either the email code or
// the WhatsApp fallback verifies the payout; comparisons run in constant
// time inside security.VerifyCode.
func (s *service) Verify(ctx context.Context, payoutID uuid.UUID, code string) (*models.Payout, error) {
	payout, err := s.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != enums.PayoutStatusVerificationPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payout is %s, expected %s", payout.Status, enums.PayoutStatusVerificationPending))
	}
	if s.now().After(payout.CodeExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "verification code expired")
	}
	if payout.VerifyAttempts >= s.cfg.MaxVerifyAttempts {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "verification attempts exhausted")
	}

	code = strings.TrimSpace(code)
	matched, err := security.VerifyCode(code, payout.EmailCodeHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify code")
	}
	if !matched && payout.WhatsAppCodeHash != nil {
		matched, err = security.VerifyCode(code, *payout.WhatsAppCodeHash)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify code")
		}
	}

	if !matched {
		if err := s.repo.IncrementVerifyAttempts(ctx, payoutID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record verify attempt")
		}
		if payout.VerifyAttempts+1 >= s.cfg.MaxVerifyAttempts {
			reason := "verification attempts exhausted"
			_, transitionErr := s.transition(ctx, nil, payout, Transition{
				From:    enums.PayoutStatusVerificationPending,
				To:      enums.PayoutStatusRejected,
				Version: payout.Version,
				Extra:   map[string]interface{}{"failure_reason": reason},
			})
			if transitionErr == nil {
				s.metrics.IncPayoutOutcome(string(enums.PayoutStatusRejected))
			}
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, reason)
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verification code does not match")
	}

	verifiedAt := s.now()
	if _, err := s.transition(ctx, nil, payout, Transition{
		From:    enums.PayoutStatusVerificationPending,
		To:      enums.PayoutStatusVerified,
		Version: payout.Version,
		Extra:   map[string]interface{}{"verified_at": verifiedAt},
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, payoutID)
}

// Execute debits the available balance and hands the payout to the rail.
// The debit commits before the rail call: the two cannot share a
// transaction across the network boundary, so a rail failure is repaired by
// a compensating entry rather than a rollback.
func (s *service) Execute(ctx context.Context, actor *outbox.ActorRef, payoutID uuid.UUID) (*models.Payout, error) {
	if s.rail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "no payment rail configured")
	}

	payout, err := s.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != enums.PayoutStatusVerified {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payout is %s, expected %s", payout.Status, enums.PayoutStatusVerified))
	}
	beneficiary := s.beneficiary(payout)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.transition(ctx, tx, payout, Transition{
			From:    enums.PayoutStatusVerified,
			To:      enums.PayoutStatusExecuting,
			Version: payout.Version,
		}); err != nil {
			return err
		}

		// Balance may have shrunk since the request; re-check before the
		// debit so the payout can never overdraw the wallet.
		available, err := s.availableInCurrency(ctx, beneficiary, payout.Currency)
		if err != nil {
			return err
		}
		if available < payout.AmountCents {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient available balance")
		}

		if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			UserID:      beneficiary,
			Type:        enums.LedgerEntryTypeDebit,
			State:       enums.LedgerEntryStateAvailable,
			Source:      enums.LedgerSourcePayout,
			AmountCents: payout.AmountCents,
			Currency:    payout.Currency,
			Description: "payout execution",
		}); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPayoutExecuted, payout, actor, map[string]any{
			"amount_cents": payout.AmountCents,
		})
	})
	if err != nil {
		return nil, err
	}

	railRef, railErr := s.rail.Submit(ctx, payout)
	if railErr != nil {
		s.failAfterDebit(ctx, actor, payout, beneficiary, railErr)
		s.metrics.IncPayoutOutcome(string(enums.PayoutStatusFailed))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, railErr, "submit payout to rail")
	}

	executedAt := s.now()
	current, err := s.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if _, err := s.transition(ctx, nil, current, Transition{
		From:    enums.PayoutStatusExecuting,
		To:      enums.PayoutStatusCompleted,
		Version: current.Version,
		Extra:   map[string]interface{}{"executed_at": executedAt},
	}); err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithPayoutID(ctx, payout.ID.String()), "payout settled via rail "+railRef)
	}
	s.metrics.IncPayoutOutcome(string(enums.PayoutStatusCompleted))
	return s.Get(ctx, payoutID)
}

// failAfterDebit marks the payout failed and writes the compensating entry
// returning the already-debited funds. The original debit stays in the
// ledger; history is corrected forward, never erased.
func (s *service) failAfterDebit(ctx context.Context, actor *outbox.ActorRef, payout *models.Payout, beneficiary uuid.UUID, railErr error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.WithTx(tx).FindByID(ctx, payout.ID)
		if err != nil {
			return err
		}
		reason := railErr.Error()
		if _, err := s.transition(ctx, tx, current, Transition{
			From:    enums.PayoutStatusExecuting,
			To:      enums.PayoutStatusFailed,
			Version: current.Version,
			Extra:   map[string]interface{}{"failure_reason": reason},
		}); err != nil {
			return err
		}
		if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			UserID:      beneficiary,
			Type:        enums.LedgerEntryTypeCredit,
			State:       enums.LedgerEntryStateAvailable,
			Source:      enums.LedgerSourceManualAdjustment,
			AmountCents: payout.AmountCents,
			Currency:    payout.Currency,
			Description: "compensation for failed payout " + payout.ID.String(),
		}); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPayoutFailed, payout, actor, map[string]any{
			"reason": reason,
		})
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "reconciling failed payout", err)
	}
}

func (s *service) Reject(ctx context.Context, actor *outbox.ActorRef, payoutID uuid.UUID, reason string) (*models.Payout, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a reason is required")
	}
	payout, err := s.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status.IsTerminal() || payout.Status == enums.PayoutStatusExecuting {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payout is %s and cannot be rejected", payout.Status))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.transition(ctx, tx, payout, Transition{
			From:    payout.Status,
			To:      enums.PayoutStatusRejected,
			Version: payout.Version,
			Extra:   map[string]interface{}{"failure_reason": strings.TrimSpace(reason)},
		}); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPayoutFailed, payout, actor, map[string]any{
			"reason":   reason,
			"rejected": true,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPayoutOutcome(string(enums.PayoutStatusRejected))
	return s.Get(ctx, payoutID)
}

// Cancel lets the requester abandon a payout before execution. No ledger
// entry exists yet at that point, so cancellation is a pure status change.
func (s *service) Cancel(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	payout, err := s.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	switch payout.Status {
	case enums.PayoutStatusDraft, enums.PayoutStatusVerificationPending, enums.PayoutStatusVerified:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payout is %s and cannot be canceled", payout.Status))
	}

	reason := "canceled by requester"
	if _, err := s.transition(ctx, nil, payout, Transition{
		From:    payout.Status,
		To:      enums.PayoutStatusRejected,
		Version: payout.Version,
		Extra:   map[string]interface{}{"failure_reason": reason},
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, payoutID)
}

// availableInCurrency returns the available balance for one currency of
// the beneficiary's wallet. A currency with no entries has zero available.
func (s *service) availableInCurrency(ctx context.Context, beneficiary uuid.UUID, currency enums.Currency) (int64, error) {
	summaries, err := s.ledger.SummarizeAll(ctx, beneficiary)
	if err != nil {
		return 0, err
	}
	for _, summary := range summaries {
		if summary.Currency == currency {
			return summary.AvailableCents, nil
		}
	}
	return 0, nil
}

func (s *service) beneficiary(payout *models.Payout) uuid.UUID {
	if payout.Scope == enums.PayoutScopePartner && payout.PartnerID != nil {
		return *payout.PartnerID
	}
	if payout.UserID != nil {
		return *payout.UserID
	}
	return uuid.Nil
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, payout *models.Payout, t Transition) (bool, error) {
	ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, payout.ID, t)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition payout status")
	}
	if !ok {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "payout changed concurrently")
	}
	return true, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, payout *models.Payout, actor *outbox.ActorRef, data map[string]any) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payout.ID,
		Actor:         actor,
		Data:          data,
		Version:       1,
	})
}
