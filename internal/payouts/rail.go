package payouts

import (
	"context"

	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/pkg/db/models"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
)

// loggingRail accepts every transfer and logs it. Stands in for the real
// gateway in dev environments.
type loggingRail struct {
	logg *logger.Logger
}

func NewLoggingRail(logg *logger.Logger) PixRail {
	return &loggingRail{logg: logg}
}

func (r *loggingRail) Submit(ctx context.Context, payout *models.Payout) (string, error) {
	endToEndID := "E" + uuid.NewString()
	if r.logg != nil {
		ctx = r.logg.WithFields(ctx, map[string]any{
			"payout_id":    payout.ID.String(),
			"amount_cents": payout.AmountCents,
			"end_to_end":   endToEndID,
		})
		r.logg.Info(ctx, "pix transfer accepted by logging rail")
	}
	return endToEndID, nil
}

// loggingCodeDelivery logs code delivery instead of sending it. Real
// email/WhatsApp transports plug in behind the same interface.
type loggingCodeDelivery struct {
	logg *logger.Logger
}

func NewLoggingCodeDelivery(logg *logger.Logger) CodeDelivery {
	return &loggingCodeDelivery{logg: logg}
}

func (d *loggingCodeDelivery) DeliverEmailCode(ctx context.Context, payout *models.Payout, code string) error {
	d.log(ctx, payout, "email verification code issued")
	return nil
}

func (d *loggingCodeDelivery) DeliverWhatsAppCode(ctx context.Context, payout *models.Payout, code string) error {
	d.log(ctx, payout, "whatsapp verification code issued")
	return nil
}

// log records that a code went out. The code itself never reaches the logs.
func (d *loggingCodeDelivery) log(ctx context.Context, payout *models.Payout, msg string) {
	if d.logg == nil {
		return
	}
	ctx = d.logg.WithPayoutID(ctx, payout.ID.String())
	d.logg.Info(ctx, msg)
}
