package attribution

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/matheuslopes/garimpei-backend/pkg/enums"
	pkgerrors "github.com/matheuslopes/garimpei-backend/pkg/errors"
)

func setupAttributionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

type staticClickCounter struct {
	clicks int64
}

func (c *staticClickCounter) CountClicks(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	return c.clicks, nil
}

func TestService_RecordOncePerOrder(t *testing.T) {
	database := setupAttributionTestDB(t)
	svc, err := NewService(NewRepository(database), nil)
	require.NoError(t, err)
	ctx := context.Background()

	orderID := uuid.New()
	partnerID := uuid.New()
	code := "VERAO10"
	input := RecordInput{
		OrderID:    orderID,
		PartnerID:  &partnerID,
		CouponCode: &code,
		Currency:   enums.CurrencyBRL,
		Totals: CalculateTotals(TotalsInput{
			OriginalTotalCents:   20000,
			PlatformFeeBps:       1000,
			PartnerCommissionBps: intPtr(6500),
		}),
	}

	event, err := svc.Record(ctx, nil, input)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, int64(1300), event.CommissionCents)
	assert.Equal(t, int64(2000), event.PlatformFeeBaseCents)

	_, err = svc.Record(ctx, nil, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestService_RecordValidation(t *testing.T) {
	database := setupAttributionTestDB(t)
	svc, err := NewService(NewRepository(database), nil)
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), nil, RecordInput{Currency: enums.CurrencyBRL})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Record(context.Background(), nil, RecordInput{OrderID: uuid.New(), Currency: "XYZ"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestService_GetByOrderNotFound(t *testing.T) {
	database := setupAttributionTestDB(t)
	svc, err := NewService(NewRepository(database), nil)
	require.NoError(t, err)

	_, err = svc.GetByOrder(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestService_PartnerStats(t *testing.T) {
	database := setupAttributionTestDB(t)
	svc, err := NewService(NewRepository(database), &staticClickCounter{clicks: 42})
	require.NoError(t, err)
	ctx := context.Background()

	partnerID := uuid.New()
	for i, commission := range []int64{975, 1300} {
		orderID := uuid.New()
		_, err := svc.Record(ctx, nil, RecordInput{
			OrderID:   orderID,
			PartnerID: &partnerID,
			Currency:  enums.CurrencyBRL,
			Totals: Totals{
				PlatformFeeBaseCents:   2000,
				DiscountAppliedCents:   int64(100 * (i + 1)),
				PlatformFeeFinalCents:  1500,
				PartnerCommissionCents: commission,
			},
		})
		require.NoError(t, err)
	}
	// An event for another partner must not leak into the stats.
	_, err = svc.Record(ctx, nil, RecordInput{
		OrderID:  uuid.New(),
		Currency: enums.CurrencyBRL,
		Totals:   Totals{PartnerCommissionCents: 5000},
	})
	require.NoError(t, err)

	stats, err := svc.PartnerStats(ctx, partnerID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.Clicks)
	assert.Equal(t, int64(2), stats.AttributedOrders)
	assert.Equal(t, int64(2275), stats.CommissionSumCents)
	assert.Equal(t, int64(300), stats.DiscountTotalCents)
}
