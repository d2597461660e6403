package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/socialagro/social-agro-backend/api"
	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/auth"
	"github.com/socialagro/social-agro-backend/internal/client"
	"github.com/socialagro/social-agro-backend/internal/metrics"
	"github.com/socialagro/social-agro-backend/internal/payment"
	"github.com/socialagro/social-agro-backend/internal/schedule"
	"github.com/socialagro/social-agro-backend/internal/transport/middleware"
	"github.com/socialagro/social-agro-backend/internal/transport/swagger"
)

// Handlers groups everything the router mounts. Nil handlers leave their
// routes unregistered.
type Handlers struct {
	Auth     *auth.Handler
	Client   *client.Handler
	Schedule *schedule.Handler
	Payment  *payment.Handler
	Webhook  *payment.WebhookHandler
	Health   *HealthHandler
}

type RouterConfig struct {
	AllowedOrigins []string
	MetricsPath    string
	Metrics        *metrics.Metrics
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, handlers Handlers, cfg RouterConfig, logger *slog.Logger) {
	healthHandler := handlers.Health
	if healthHandler == nil {
		healthHandler = NewHealthHandler(db)
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.Metrics(cfg.Metrics))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/", healthHandler.rootHandler)
	router.Get("/health", healthHandler.healthCheckHandler)
	router.Get("/ping", healthHandler.pingHandler)

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, cfg.Metrics.Handler())
	}

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec())
	})
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	router.Route("/payments/mercadopago", func(r chi.Router) {
		if handlers.Payment != nil {
			r.Post("/checkout", handlers.Payment.CreateCheckout)
		}
		if handlers.Webhook != nil {
			r.Post("/webhook", handlers.Webhook.HandleNotification)
		}
	})

	if handlers.Auth == nil {
		return
	}

	router.Route("/admin", func(r chi.Router) {
		r.Post("/register", handlers.Auth.RegisterAdmin)
		r.Post("/login", handlers.Auth.LoginAdmin)

		r.Group(func(ar chi.Router) {
			ar.Use(handlers.Auth.RequireRole(internal.RoleAdmin))

			if handlers.Client != nil {
				ar.Get("/clientes", handlers.Client.ListClients)
				ar.Post("/clientes", handlers.Client.CreateClient)
				ar.Put("/clientes/{id}", handlers.Client.UpdateClient)
			}
			if handlers.Schedule != nil {
				ar.Get("/clientes/{id}/programacoes", handlers.Schedule.ListForClient)
				ar.Post("/clientes/{id}/programacoes", handlers.Schedule.Create)
			}
		})
	})

	router.Route("/client", func(r chi.Router) {
		r.Post("/login", handlers.Auth.LoginClient)

		r.Group(func(cr chi.Router) {
			cr.Use(handlers.Auth.RequireRole(internal.RoleClient))

			if handlers.Schedule != nil {
				cr.Get("/programacoes", handlers.Schedule.ListOwn)
			}
			if handlers.Payment != nil {
				cr.Get("/pagamentos/ultimo", handlers.Payment.GetLatestPayment)
			}
		})
	})
}
