package payouts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/internal/ledger"
	"github.com/matheuslopes/garimpei-backend/pkg/config"
	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
	"github.com/matheuslopes/garimpei-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeRail struct {
	submissions int
	err         error
}

func (r *fakeRail) Submit(ctx context.Context, payout *models.Payout) (string, error) {
	r.submissions++
	if r.err != nil {
		return "", r.err
	}
	return "rail-ref-001", nil
}

// captureDelivery records the plaintext codes so tests can verify with them.
type captureDelivery struct {
	emailCode    string
	whatsAppCode string
}

func (d *captureDelivery) DeliverEmailCode(ctx context.Context, payout *models.Payout, code string) error {
	d.emailCode = code
	return nil
}

func (d *captureDelivery) DeliverWhatsAppCode(ctx context.Context, payout *models.Payout, code string) error {
	d.whatsAppCode = code
	return nil
}

type gormUserGate struct{ db *gorm.DB }

func (g *gormUserGate) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := g.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type gormPartnerGate struct{ db *gorm.DB }

func (g *gormPartnerGate) FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := g.db.WithContext(ctx).Where("id = ?", id).First(&partner).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

func setupPayoutsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:payouts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL,
  blocked INTEGER NOT NULL DEFAULT 0,
  blocked_at DATETIME,
  block_reason TEXT,
  payout_blocked INTEGER NOT NULL DEFAULT 0,
  payout_blocked_at DATETIME,
  payout_block_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS partners (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  commission_bps INTEGER NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  payout_blocked INTEGER NOT NULL DEFAULT 0,
  payout_blocked_at DATETIME,
  payout_block_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  state TEXT NOT NULL,
  source TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  order_id TEXT,
  payment_id TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payouts (
  id TEXT PRIMARY KEY,
  scope TEXT NOT NULL,
  user_id TEXT,
  partner_id TEXT,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  pix_key TEXT NOT NULL,
  pix_key_type TEXT NOT NULL,
  status TEXT NOT NULL,
  speed TEXT NOT NULL,
  email_code_hash TEXT NOT NULL,
  whatsapp_code_hash TEXT,
  code_expires_at DATETIME NOT NULL,
  verify_attempts INTEGER NOT NULL DEFAULT 0,
  failure_reason TEXT,
  version INTEGER NOT NULL DEFAULT 0,
  verified_at DATETIME,
  executed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type payoutFixture struct {
	svc       Service
	ledgerSvc ledger.Service
	rail      *fakeRail
	delivery  *captureDelivery
	db        *gorm.DB
}

func testPayoutConfig() config.PayoutConfig {
	return config.PayoutConfig{
		MinAmountCents:       2000,
		CodeTTL:              30 * time.Minute,
		MaxVerifyAttempts:    3,
		WhatsAppCodeFallback: true,
	}
}

// fastArgon keeps the hashing cheap in tests; the parameters are still
// valid Argon2id inputs after clamping.
func fastArgon() config.SecurityConfig {
	return config.SecurityConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newPayoutFixture(t *testing.T) *payoutFixture {
	t.Helper()
	database := setupPayoutsTestDB(t)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(database), nil)
	require.NoError(t, err)

	rail := &fakeRail{}
	delivery := &captureDelivery{}
	events := outbox.NewService(outbox.NewRepository(database), nil)
	svc, err := NewService(
		NewRepository(database),
		ledgerSvc,
		&gormUserGate{db: database},
		&gormPartnerGate{db: database},
		&gormTxRunner{db: database},
		events,
		rail,
		delivery,
		nil,
		nil,
		testPayoutConfig(),
		fastArgon(),
	)
	require.NoError(t, err)

	return &payoutFixture{svc: svc, ledgerSvc: ledgerSvc, rail: rail, delivery: delivery, db: database}
}

func (f *payoutFixture) seedUser(t *testing.T, availableCents int64) *models.User {
	t.Helper()
	user := &models.User{
		ID:    uuid.New(),
		Email: uuid.NewString()[:8] + "@garimpei.com.br",
		Role:  enums.UserRoleSeller,
	}
	require.NoError(t, f.db.Create(user).Error)

	if availableCents > 0 {
		_, err := f.ledgerSvc.Append(context.Background(), nil, ledger.AppendInput{
			UserID: user.ID, Type: enums.LedgerEntryTypeCredit, State: enums.LedgerEntryStateAvailable,
			Source: enums.LedgerSourceOrderPayment, AmountCents: availableCents, Currency: enums.CurrencyBRL,
		})
		require.NoError(t, err)
	}
	return user
}

func (f *payoutFixture) request(t *testing.T, userID uuid.UUID, amount int64) *models.Payout {
	t.Helper()
	payout, err := f.svc.Request(context.Background(), nil, RequestInput{
		Scope:       enums.PayoutScopeUser,
		UserID:      &userID,
		AmountCents: amount,
		Currency:    enums.CurrencyBRL,
		PixKey:      "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
		PixKeyType:  enums.PixKeyTypeRandom,
	})
	require.NoError(t, err)
	return payout
}

func TestRequest(t *testing.T) {
	f := newPayoutFixture(t)
	user := f.seedUser(t, 10000)

	payout := f.request(t, user.ID, 5000)
	assert.Equal(t, enums.PayoutStatusVerificationPending, payout.Status)
	assert.Equal(t, enums.PayoutSpeedStandard, payout.Speed)

	// Codes go out through the delivery collaborator; only hashes persist.
	require.Len(t, f.delivery.emailCode, 6)
	require.Len(t, f.delivery.whatsAppCode, 6)
	assert.True(t, strings.HasPrefix(payout.EmailCodeHash, "$argon2id$"))
	assert.NotContains(t, payout.EmailCodeHash, f.delivery.emailCode)
	require.NotNil(t, payout.WhatsAppCodeHash)

	var count int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPayoutRequested).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRequest_BelowMinimum(t *testing.T) {
	f := newPayoutFixture(t)
	user := f.seedUser(t, 10000)

	_, err := f.svc.Request(context.Background(), nil, RequestInput{
		Scope: enums.PayoutScopeUser, UserID: &user.ID, AmountCents: 1999,
		Currency: enums.CurrencyBRL, PixKey: "k", PixKeyType: enums.PixKeyTypeEmail,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRequest_InsufficientBalance(t *testing.T) {
	f := newPayoutFixture(t)
	user := f.seedUser(t, 3000)

	_, err := f.svc.Request(context.Background(), nil, RequestInput{
		Scope: enums.PayoutScopeUser, UserID: &user.ID, AmountCents: 5000,
		Currency: enums.CurrencyBRL, PixKey: "k@x.com", PixKeyType: enums.PixKeyTypeEmail,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	// Rejected before anything is written: no payout row, no ledger entry.
	var payoutCount, entryCount int64
	require.NoError(t, f.db.Model(&models.Payout{}).Count(&payoutCount).Error)
	require.NoError(t, f.db.Model(&models.LedgerEntry{}).Where("source = ?", enums.LedgerSourcePayout).Count(&entryCount).Error)
	assert.Zero(t, payoutCount)
	assert.Zero(t, entryCount)
}

func TestRequest_CurrencyMismatch(t *testing.T) {
	f := newPayoutFixture(t)
	user := f.seedUser(t, 10000)

	// The entire balance is BRL; a USD payout has nothing to draw from.
	_, err := f.svc.Request(context.Background(), nil, RequestInput{
		Scope: enums.PayoutScopeUser, UserID: &user.ID, AmountCents: 5000,
		Currency: enums.CurrencyUSD, PixKey: "k@x.com", PixKeyType: enums.PixKeyTypeEmail,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	var payoutCount int64
	require.NoError(t, f.db.Model(&models.Payout{}).Count(&payoutCount).Error)
	assert.Zero(t, payoutCount)
}

func TestRequest_PayoutBlockedUser(t *testing.T) {
	f := newPayoutFixture(t)
	user := f.seedUser(t, 10000)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", user.ID).
		UpdateColumn("payout_blocked", true).Error)

	_, err := f.svc.Request(context.Background(), nil, RequestInput{
		Scope: enums.PayoutScopeUser, UserID: &user.ID, AmountCents: 5000,
		Currency: enums.CurrencyBRL, PixKey: "k@x.com", PixKeyType: enums.PixKeyTypeEmail,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestRequest_BlockedPartner(t *testing.T) {
	f := newPayoutFixture(t)
	partner := &models.Partner{
		ID: uuid.New(), Slug: "blocked", Name: "Blocked", CommissionBps: 500,
		Active: true, PayoutBlocked: true,
	}
	require.NoError(t, f.db.Create(partner).Error)

	_, err := f.svc.Request(context.Background(), nil, RequestInput{
		Scope: enums.PayoutScopePartner, PartnerID: &partner.ID, AmountCents: 5000,
		Currency: enums.CurrencyBRL, PixKey: "k@x.com", PixKeyType: enums.PixKeyTypeEmail,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestVerify(t *testing.T) {
	f := newPayoutFixture(t)
	user := f.seedUser(t, 10000)
	payout := f.request(t, user.ID, 5000)

	verified, err := f.svc.Verify(context.Background(), payout.ID, f.delivery.emailCode)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusVerified, verified.Status)
	assert.NotNil(t, verified.VerifiedAt)
}

func TestVerify_WhatsAppFallbackCode(t *testing.T) {
	f := newPayoutFixture(t)
	user := f.seedUser(t, 10000)
	payout := f.request(t, user.ID, 5000)

	code := f.delivery.whatsAppCode
	if code == f.delivery.emailCode {
		t.Skip("codes collided; fallback path indistinguishable")
	}
	verified, err := f.svc.Verify(context.Background(), payout.ID, code)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusVerified, verified.Status)
}

func TestVerify_WrongCodeAttemptLimit(t *testing.T) {
	f := newPayoutFixture(t)
	user := f.seedUser(t, 10000)
	payout := f.request(t, user.ID, 5000)

	wrong := "000000"
	if wrong == f.delivery.emailCode || wrong == f.delivery.whatsAppCode {
		wrong = "000001"
	}

	for i := 0; i < 2; i++ {
		_, err := f.svc.Verify(context.Background(), payout.ID, wrong)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}

	// Third miss exhausts the attempt allowance and rejects the payout.
	_, err := f.svc.Verify(context.Background(), payout.ID, wrong)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	reloaded, err := f.svc.Get(context.Background(), payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusRejected, reloaded.Status)

	// The right code no longer helps.
	_, err = f.svc.Verify(context.Background(), payout.ID, f.delivery.emailCode)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestVerify_ExpiredCode(t *testing.T) {
	f := newPayoutFixture(t)
	user := f.seedUser(t, 10000)
	payout := f.request(t, user.ID, 5000)

	require.NoError(t, f.db.Model(&models.Payout{}).Where("id = ?", payout.ID).
		UpdateColumn("code_expires_at", time.Now().Add(-time.Minute)).Error)

	_, err := f.svc.Verify(context.Background(), payout.ID, f.delivery.emailCode)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestExecute(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, 10000)
	payout := f.request(t, user.ID, 6000)

	_, err := f.svc.Verify(ctx, payout.ID, f.delivery.emailCode)
	require.NoError(t, err)

	executed, err := f.svc.Execute(ctx, nil, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusCompleted, executed.Status)
	assert.NotNil(t, executed.ExecutedAt)
	assert.Equal(t, 1, f.rail.submissions)

	summary, err := f.ledgerSvc.Summarize(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), summary.AvailableCents)
}

func TestExecute_RailFailureCompensates(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, 10000)
	payout := f.request(t, user.ID, 6000)

	_, err := f.svc.Verify(ctx, payout.ID, f.delivery.emailCode)
	require.NoError(t, err)

	f.rail.err = errors.New("rail unavailable")
	_, err = f.svc.Execute(ctx, nil, payout.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	reloaded, err := f.svc.Get(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.FailureReason)
	assert.Contains(t, *reloaded.FailureReason, "rail unavailable")

	// The debit is not deleted; a compensating entry restores the balance.
	var debits, compensations int64
	require.NoError(t, f.db.Model(&models.LedgerEntry{}).
		Where("source = ?", enums.LedgerSourcePayout).Count(&debits).Error)
	require.NoError(t, f.db.Model(&models.LedgerEntry{}).
		Where("source = ?", enums.LedgerSourceManualAdjustment).Count(&compensations).Error)
	assert.Equal(t, int64(1), debits)
	assert.Equal(t, int64(1), compensations)

	summary, err := f.ledgerSvc.Summarize(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), summary.AvailableCents)
}

func TestExecute_InsufficientBalanceAtExecution(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, 10000)
	payout := f.request(t, user.ID, 6000)

	_, err := f.svc.Verify(ctx, payout.ID, f.delivery.emailCode)
	require.NoError(t, err)

	// Balance shrinks between verification and execution.
	_, err = f.ledgerSvc.Append(ctx, nil, ledger.AppendInput{
		UserID: user.ID, Type: enums.LedgerEntryTypeDebit, State: enums.LedgerEntryStateAvailable,
		Source: enums.LedgerSourcePayout, AmountCents: 7000, Currency: enums.CurrencyBRL,
	})
	require.NoError(t, err)

	_, err = f.svc.Execute(ctx, nil, payout.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Zero(t, f.rail.submissions, "rail never sees an unfunded payout")
}

func TestExecute_OtherCurrencyDoesNotFund(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, 10000)
	payout := f.request(t, user.ID, 6000)

	_, err := f.svc.Verify(ctx, payout.ID, f.delivery.emailCode)
	require.NoError(t, err)

	// The BRL balance drains away; a USD credit arrives in its place and
	// must not fund the BRL payout.
	_, err = f.ledgerSvc.Append(ctx, nil, ledger.AppendInput{
		UserID: user.ID, Type: enums.LedgerEntryTypeDebit, State: enums.LedgerEntryStateAvailable,
		Source: enums.LedgerSourcePayout, AmountCents: 10000, Currency: enums.CurrencyBRL,
	})
	require.NoError(t, err)
	_, err = f.ledgerSvc.Append(ctx, nil, ledger.AppendInput{
		UserID: user.ID, Type: enums.LedgerEntryTypeCredit, State: enums.LedgerEntryStateAvailable,
		Source: enums.LedgerSourceOrderPayment, AmountCents: 20000, Currency: enums.CurrencyUSD,
	})
	require.NoError(t, err)

	_, err = f.svc.Execute(ctx, nil, payout.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	assert.Zero(t, f.rail.submissions)
}

func TestCancel(t *testing.T) {
	f := newPayoutFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, 10000)
	payout := f.request(t, user.ID, 5000)

	canceled, err := f.svc.Cancel(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusRejected, canceled.Status)

	// Cancellation before execution never touches the ledger.
	var entryCount int64
	require.NoError(t, f.db.Model(&models.LedgerEntry{}).
		Where("source = ?", enums.LedgerSourcePayout).Count(&entryCount).Error)
	assert.Zero(t, entryCount)
}
