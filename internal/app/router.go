package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sariverse/sariverse/internal/auth"
	"github.com/sariverse/sariverse/internal/debtors"
	"github.com/sariverse/sariverse/internal/inventory"
	"github.com/sariverse/sariverse/internal/observability"
	"github.com/sariverse/sariverse/internal/orders"
	"github.com/sariverse/sariverse/internal/products"
	"github.com/sariverse/sariverse/internal/profiles"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthService      *auth.Service
	AuthHandler      *auth.Handler
	ProfilesHandler  *profiles.Handler
	DebtorsHandler   *debtors.Handler
	ProductsHandler  *products.Handler
	InventoryHandler *inventory.Handler
	OrdersHandler    *orders.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Sariverse defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Everything else requires a bearer token.
	r.Group(func(r chi.Router) {
		r.Use(params.AuthService.Middleware)

		params.ProfilesHandler.MountRoutes(r)
		params.DebtorsHandler.MountRoutes(r)
		params.ProductsHandler.MountRoutes(r)
		params.InventoryHandler.MountRoutes(r)
		params.OrdersHandler.MountRoutes(r)
	})

	return r
}
