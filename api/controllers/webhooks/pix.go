package webhooks

import (
	"net/http"
	"time"

	"github.com/matheuslopes/garimpei-backend/api/responses"
	"github.com/matheuslopes/garimpei-backend/api/validators"
	pixwebhook "github.com/matheuslopes/garimpei-backend/internal/webhooks/pix"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
)

type pixConfirmationRequest struct {
	Txid      string    `json:"txid" validate:"required,min=1,max=140"`
	PaymentID *string   `json:"payment_id,omitempty"`
	PaidAt    time.Time `json:"paid_at" validate:"required"`
}

// PixPaymentConfirmed is the gateway intake. Replays of an already
// processed txid return 200 so the gateway stops retrying.
func PixPaymentConfirmed(svc pixwebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pixConfirmationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err := svc.HandlePaymentConfirmed(r.Context(), pixwebhook.PaymentConfirmation{
			Txid:      req.Txid,
			PaymentID: req.PaymentID,
			PaidAt:    req.PaidAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "accepted"})
	}
}
