package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Andres4532/solhana-storefront/internal/service"
	"github.com/Andres4532/solhana-storefront/internal/session"
	"github.com/Andres4532/solhana-storefront/pkg/health"
	"github.com/Andres4532/solhana-storefront/pkg/middleware"
)

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	cartService *service.CartService,
	catalogService *service.CatalogService,
	checkoutService *service.CheckoutService,
	sessions *session.Manager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsCfg middleware.CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	cartHandler := NewCartHandler(cartService, sessions, logger)
	catalogHandler := NewCatalogHandler(catalogService, logger)
	checkoutHandler := NewCheckoutHandler(checkoutService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(SessionCookies(sessions))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Get("/{productID}", catalogHandler.GetProduct)
			r.Post("/{productID}/availability", cartHandler.Availability)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/claim", cartHandler.ClaimCart)

			r.Post("/lines", cartHandler.AddItem)
			r.Put("/lines/{lineID}", cartHandler.UpdateLine)
			r.Delete("/lines/{lineID}", cartHandler.RemoveLine)
		})

		r.Post("/checkout", checkoutHandler.Checkout)
		r.Get("/orders/{orderID}", checkoutHandler.GetOrder)

		r.Post("/session/signout", cartHandler.SignOut)
	})

	return r
}
