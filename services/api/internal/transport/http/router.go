package http

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

type HoldService interface {
	HoldCreator
	HoldCanceller
}

type AdminService interface {
	AdminStockService
	AdminOrderService
	AdminSweepService
	AdminSettleService
}

// Services groups what the router exposes.
type Services struct {
	Holds    HoldService
	Payments PaymentHandler
	Verifier CallbackVerifier
	Admin    AdminService
	// HealthCheck probes the row store; nil skips the probe.
	HealthCheck func(ctx context.Context) error
}

type RouterConfig struct {
	AdminToken  string
	CORSOrigins []string
	Logger      zerolog.Logger
}

// NewRouter wires every endpoint with logging and CORS.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HandleHealth(svc.HealthCheck))
	mux.Handle("/products", HandleListProducts(svc.Admin))
	mux.Handle("/reservations", HandleCreateReservation(svc.Holds))
	mux.Handle("/reservations/", HandleCancelReservation(svc.Holds))
	mux.Handle("/webhooks/payment", HandlePaymentWebhook(svc.Verifier, svc.Payments, cfg.Logger))

	admin := func(h http.Handler) http.Handler { return AdminOnly(cfg.AdminToken, h) }
	mux.Handle("/admin/stock", admin(HandleAdminStock(svc.Admin)))
	mux.Handle("/admin/products", admin(HandleAdminProducts(svc.Admin)))
	mux.Handle("/admin/products/", admin(HandleAdminRestock(svc.Admin)))
	mux.Handle("/admin/orders", admin(HandleAdminOrders(svc.Admin)))
	mux.Handle("/admin/sweep", admin(HandleAdminSweep(svc.Admin)))
	mux.Handle("/admin/reservations/", admin(HandleAdminSettle(svc.Admin)))
	mux.Handle("/", NotFoundHandler())

	return RequestLogger(CORS(cfg.CORSOrigins, mux), cfg.Logger)
}
