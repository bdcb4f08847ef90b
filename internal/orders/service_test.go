package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/internal/attribution"
	"github.com/matheuslopes/garimpei-backend/internal/ledger"
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

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL,
  version INTEGER NOT NULL DEFAULT 0,
  coupon_code TEXT,
  txid TEXT,
  payment_id TEXT,
  paid_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT ux_orders_txid UNIQUE (txid)
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
CREATE TABLE IF NOT EXISTS commission_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  partner_id TEXT,
  coupon_code TEXT,
  discount_applied_cents INTEGER NOT NULL,
  platform_fee_base_cents INTEGER NOT NULL,
  platform_fee_final_cents INTEGER NOT NULL,
  commission_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  created_at DATETIME,
  CONSTRAINT ux_commission_events_order_id UNIQUE (order_id)
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

type orderFixture struct {
	svc       Service
	ledgerSvc ledger.Service
	attribSvc attribution.Service
	db        *gorm.DB
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	database := setupOrdersTestDB(t)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(database), nil)
	require.NoError(t, err)
	attribSvc, err := attribution.NewService(attribution.NewRepository(database), nil)
	require.NoError(t, err)

	events := outbox.NewService(outbox.NewRepository(database), nil)
	svc, err := NewService(NewRepository(database), ledgerSvc, attribSvc, &gormTxRunner{db: database}, events)
	require.NoError(t, err)

	return &orderFixture{svc: svc, ledgerSvc: ledgerSvc, attribSvc: attribSvc, db: database}
}

// seedPaidOrder creates an order in the paid state with its commission event
// and the held entries a payment confirmation would have written.
func (f *orderFixture) seedPaidOrder(t *testing.T, withPartner bool) (*models.Order, *models.CommissionEvent) {
	t.Helper()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateInput{
		BuyerID:    uuid.New(),
		SellerID:   uuid.New(),
		TotalCents: 20000,
		Currency:   enums.CurrencyBRL,
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).
		UpdateColumn("status", enums.OrderStatusPaid).Error)
	order.Status = enums.OrderStatusPaid

	input := attribution.RecordInput{
		OrderID:  order.ID,
		Currency: enums.CurrencyBRL,
		Totals: attribution.Totals{
			PlatformFeeBaseCents:  2000,
			PlatformFeeFinalCents: 2000,
			SellerNetCents:        18000,
		},
	}
	if withPartner {
		partnerID := uuid.New()
		input.PartnerID = &partnerID
		input.Totals.PartnerCommissionCents = 1300
	}
	event, err := f.attribSvc.Record(ctx, nil, input)
	require.NoError(t, err)

	_, err = f.ledgerSvc.Append(ctx, nil, ledger.AppendInput{
		UserID: order.SellerID, Type: enums.LedgerEntryTypeCredit, State: enums.LedgerEntryStateHeld,
		Source: enums.LedgerSourceOrderPayment, AmountCents: 18000, Currency: enums.CurrencyBRL, OrderID: &order.ID,
	})
	require.NoError(t, err)
	if withPartner {
		_, err = f.ledgerSvc.Append(ctx, nil, ledger.AppendInput{
			UserID: *event.PartnerID, Type: enums.LedgerEntryTypeCredit, State: enums.LedgerEntryStateHeld,
			Source: enums.LedgerSourcePartnerCommission, AmountCents: 1300, Currency: enums.CurrencyBRL, OrderID: &order.ID,
		})
		require.NoError(t, err)
	}
	return order, event
}

func TestConfirmDelivery_ReleasesEscrow(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, event := f.seedPaidOrder(t, true)

	updated, err := f.svc.ConfirmDelivery(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, updated.Status)
	assert.NotNil(t, updated.DeliveredAt)
	assert.Equal(t, order.Version+1, updated.Version)

	sellerSummary, err := f.ledgerSvc.Summarize(ctx, order.SellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sellerSummary.HeldCents)
	assert.Equal(t, int64(18000), sellerSummary.AvailableCents)

	partnerSummary, err := f.ledgerSvc.Summarize(ctx, *event.PartnerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), partnerSummary.HeldCents)
	assert.Equal(t, int64(1300), partnerSummary.AvailableCents)
}

func TestConfirmDelivery_WrongStatus(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateInput{
		BuyerID: uuid.New(), SellerID: uuid.New(), TotalCents: 1000, Currency: enums.CurrencyBRL,
	})
	require.NoError(t, err)

	_, err = f.svc.ConfirmDelivery(ctx, nil, order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestTransitionStatus_StaleVersion(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, _ := f.seedPaidOrder(t, false)
	repo := NewRepository(f.db)

	// Another writer bumps the version between our read and write.
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).
		UpdateColumn("version", gorm.Expr("version + 1")).Error)

	ok, err := repo.TransitionStatus(ctx, order.ID, Transition{
		From:    enums.OrderStatusPaid,
		To:      enums.OrderStatusDelivered,
		Version: order.Version,
	})
	require.NoError(t, err)
	assert.False(t, ok, "stale version must not transition")

	var reloaded models.Order
	require.NoError(t, f.db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, enums.OrderStatusPaid, reloaded.Status)
}

func TestDisputeFlow_Refund(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, _ := f.seedPaidOrder(t, false)

	disputed, err := f.svc.OpenDispute(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDisputed, disputed.Status)

	// Dispute opening itself moves no money.
	summary, err := f.ledgerSvc.Summarize(ctx, order.SellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(18000), summary.HeldCents)

	refunded, err := f.svc.ResolveDispute(ctx, nil, order.ID, true)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, refunded.Status)

	summary, err = f.ledgerSvc.Summarize(ctx, order.SellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.HeldCents)
	assert.Equal(t, int64(0), summary.AvailableCents)
	assert.Equal(t, int64(18000), summary.ReversedCents)
}

func TestDisputeFlow_ResolveAsDelivered(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, _ := f.seedPaidOrder(t, false)

	_, err := f.svc.OpenDispute(ctx, nil, order.ID)
	require.NoError(t, err)

	resolved, err := f.svc.ResolveDispute(ctx, nil, order.ID, false)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, resolved.Status)

	summary, err := f.ledgerSvc.Summarize(ctx, order.SellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.HeldCents)
	assert.Equal(t, int64(18000), summary.AvailableCents)
	assert.Zero(t, summary.ReversedCents)
}

func TestCreate_DuplicateTxid(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	txid := "E12345678202603011200abcdef12345"
	_, err := f.svc.Create(ctx, CreateInput{
		BuyerID: uuid.New(), SellerID: uuid.New(), TotalCents: 1000,
		Currency: enums.CurrencyBRL, Txid: &txid,
	})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, CreateInput{
		BuyerID: uuid.New(), SellerID: uuid.New(), TotalCents: 2000,
		Currency: enums.CurrencyBRL, Txid: &txid,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}
