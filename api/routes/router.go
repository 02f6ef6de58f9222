package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forno-digital/pizzaria-backend/api/controllers"
	"github.com/forno-digital/pizzaria-backend/api/middleware"
	"github.com/forno-digital/pizzaria-backend/internal/auth"
	"github.com/forno-digital/pizzaria-backend/internal/cashflow"
	internalorders "github.com/forno-digital/pizzaria-backend/internal/orders"
	"github.com/forno-digital/pizzaria-backend/internal/queue"
	"github.com/forno-digital/pizzaria-backend/pkg/config"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
	"github.com/forno-digital/pizzaria-backend/pkg/metrics"
	"github.com/forno-digital/pizzaria-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	authService auth.Service,
	ordersRepo internalorders.Repository,
	cashService cashflow.Service,
	orch *queue.Orchestrator,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
	)
	loginLimiter := middleware.AuthRateLimit(loginPolicy, nil, logg)
	if redisClient != nil {
		loginLimiter = middleware.AuthRateLimit(loginPolicy, redisClient, logg)
	}

	healthDeps := map[string]controllers.Pinger{}
	if dbP != nil {
		healthDeps["db"] = dbP
	}
	if redisClient != nil {
		healthDeps["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, healthDeps, logg))
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", controllers.CreateOrder(ordersRepo, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		r.With(loginLimiter).Post("/login", controllers.AdminAuthLogin(authService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", controllers.QueueSnapshot(orch, logg))
			r.Post("/refresh", controllers.QueueRefresh(orch, logg))
			r.Post("/select", controllers.QueueSelect(orch, logg))
		})

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/accept", controllers.QueueAccept(orch, logg))
			r.Post("/confirm", controllers.QueueConfirm(orch, logg))
			r.Post("/discard", controllers.QueueDiscard(orch, logg))
		})

		r.Route("/cash-flow", func(r chi.Router) {
			r.Get("/summary", controllers.CashFlowSummary(cashService, logg))
		})
	})

	return r
}
