package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matheuslopes/garimpei-backend/api/controllers"
	webhookcontrollers "github.com/matheuslopes/garimpei-backend/api/controllers/webhooks"
	"github.com/matheuslopes/garimpei-backend/api/middleware"
	"github.com/matheuslopes/garimpei-backend/internal/attribution"
	"github.com/matheuslopes/garimpei-backend/internal/coupons"
	"github.com/matheuslopes/garimpei-backend/internal/orders"
	"github.com/matheuslopes/garimpei-backend/internal/partners"
	"github.com/matheuslopes/garimpei-backend/internal/payouts"
	"github.com/matheuslopes/garimpei-backend/internal/users"
	"github.com/matheuslopes/garimpei-backend/internal/wallet"
	pixwebhook "github.com/matheuslopes/garimpei-backend/internal/webhooks/pix"
	pkgauth "github.com/matheuslopes/garimpei-backend/pkg/auth"
	"github.com/matheuslopes/garimpei-backend/pkg/config"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Wallet      wallet.Service
	Coupons     coupons.Service
	Payouts     payouts.Service
	Partners    partners.Service
	Attribution attribution.Service
	Orders      orders.Service
	Users       users.Service
	PixWebhook  pixwebhook.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisPinger controllers.Pinger,
	promRegistry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/coupons/{code}/validate", controllers.CouponValidate(svcs.Coupons, logg))
		r.Post("/partners/{slug}/click", controllers.PartnerClick(svcs.Partners, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/pix", webhookcontrollers.PixPaymentConfirmed(svcs.PixWebhook, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Use(middleware.RequireCapability(pkgauth.CapWalletRead, logg))
			r.Get("/summary", controllers.WalletSummary(svcs.Wallet, logg))
			r.Get("/summaries", controllers.WalletSummaries(svcs.Wallet, logg))
			r.Get("/entries", controllers.WalletEntries(svcs.Wallet, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.With(middleware.RequireCapability(pkgauth.CapPayoutRequest, logg)).Post("/", controllers.PayoutRequest(svcs.Payouts, logg))
			r.With(middleware.RequireCapability(pkgauth.CapPayoutRequest, logg)).Get("/{payoutID}", controllers.PayoutGet(svcs.Payouts, logg))
			r.With(middleware.RequireCapability(pkgauth.CapPayoutRequest, logg)).Post("/{payoutID}/verify", controllers.PayoutVerify(svcs.Payouts, logg))
			r.With(middleware.RequireCapability(pkgauth.CapPayoutRequest, logg)).Post("/{payoutID}/cancel", controllers.PayoutCancel(svcs.Payouts, logg))
			r.With(middleware.RequireCapability(pkgauth.CapPayoutExecute, logg)).Post("/{payoutID}/execute", controllers.PayoutExecute(svcs.Payouts, logg))
			r.With(middleware.RequireCapability(pkgauth.CapPayoutExecute, logg)).Post("/{payoutID}/reject", controllers.PayoutReject(svcs.Payouts, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(svcs.Orders, logg))
			r.Get("/{orderID}", controllers.OrderGet(svcs.Orders, logg))
			r.Post("/{orderID}/confirm-delivery", controllers.OrderConfirmDelivery(svcs.Orders, logg))
			r.Post("/{orderID}/dispute", controllers.OrderOpenDispute(svcs.Orders, logg))
			r.With(middleware.RequireCapability(pkgauth.CapAdminBlockToggle, logg)).Post("/{orderID}/resolve-dispute", controllers.OrderResolveDispute(svcs.Orders, logg))
		})

		r.Route("/partners", func(r chi.Router) {
			r.With(middleware.RequireCapability(pkgauth.CapPartnerStats, logg)).Get("/{partnerID}/stats", controllers.PartnerStats(svcs.Attribution, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.With(middleware.RequireCapability(pkgauth.CapCouponManage, logg)).Post("/coupons", controllers.CouponCreate(svcs.Coupons, logg))

		r.Route("/partners", func(r chi.Router) {
			r.Use(middleware.RequireCapability(pkgauth.CapAdminBlockToggle, logg))
			r.Post("/", controllers.PartnerCreate(svcs.Partners, logg))
			r.Post("/{partnerID}/active", controllers.PartnerSetActive(svcs.Partners, logg))
			r.Post("/{partnerID}/payout-block", controllers.PartnerSetPayoutBlocked(svcs.Partners, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireCapability(pkgauth.CapAdminBlockToggle, logg))
			r.Post("/{userID}/block", controllers.AdminSetUserBlocked(svcs.Users, logg))
			r.Post("/{userID}/payout-block", controllers.AdminSetUserPayoutBlocked(svcs.Users, logg))
		})

		r.With(middleware.RequireCapability(pkgauth.CapAdminAdjust, logg)).Post("/wallet/adjust", controllers.AdminAdjustBalance(svcs.Wallet, logg))
	})

	return r
}
