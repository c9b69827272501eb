package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/fieldpos-backend/api/controllers"
	checkoutcontrollers "github.com/angelmondragon/fieldpos-backend/api/controllers/checkout"
	discountcontrollers "github.com/angelmondragon/fieldpos-backend/api/controllers/discounts"
	ordercontrollers "github.com/angelmondragon/fieldpos-backend/api/controllers/orders"
	"github.com/angelmondragon/fieldpos-backend/api/middleware"
	"github.com/angelmondragon/fieldpos-backend/pkg/config"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
	"github.com/angelmondragon/fieldpos-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	idempotencyStore redis.IdempotencyStore,
	metricsHandler http.Handler,
	coordinator checkoutcontrollers.Runner,
	runFinder checkoutcontrollers.RunFinder,
	ordersSvc ordercontrollers.Service,
	discountCatalog discountcontrollers.Catalog,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/pos", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Post("/checkout", checkoutcontrollers.Submit(coordinator, logg))
		r.Get("/checkout/runs/{runId}", checkoutcontrollers.GetRun(runFinder, logg))

		r.Get("/orders/{orderId}", ordercontrollers.Get(ordersSvc, logg))
		r.Post("/orders/{orderId}/lines", ordercontrollers.AppendLine(ordersSvc, logg))
		r.Patch("/order-lines/{lineId}", ordercontrollers.UpdateLine(ordersSvc, logg))
		r.Delete("/order-lines/{lineId}", ordercontrollers.RemoveLine(ordersSvc, logg))

		r.Get("/discounts", discountcontrollers.List(discountCatalog, logg))
		r.Post("/discounts", discountcontrollers.Create(discountCatalog, logg))
		r.Put("/discounts/{presetId}", discountcontrollers.Update(discountCatalog, logg))
		r.Delete("/discounts/{presetId}", discountcontrollers.Delete(discountCatalog, logg))
	})

	return r
}
