package apiapp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ivankudzin/tgapp/subscriptions/internal/config"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	authsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/auth"
	entsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/entitlements"
	gatesvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/gate"
	msgsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/messages"
	quotasvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/quota"
	subsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/subscriptions"
	"github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService         *authsvc.Service
	EntitlementService  *entsvc.Service
	Gate                *gatesvc.Gate
	QuotaPresenter      *quotasvc.Presenter
	QuotaCountdown      *quotasvc.Countdown
	MessageService      *msgsvc.Service
	SubscriptionService *subsvc.Service
	HealthHandler       *handlers.HealthHandler
	Logger              *zap.Logger
	Config              config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := deps.HealthHandler
	if healthHandler == nil {
		healthHandler = handlers.NewHealthHandler()
	}
	gateHandler := handlers.NewGateHandler(deps.Gate)
	quotaHandler := handlers.NewQuotaHandler(deps.QuotaPresenter, deps.QuotaCountdown, deps.Logger)
	messagesHandler := handlers.NewMessagesHandler(deps.MessageService, deps.QuotaPresenter)
	entitlementsHandler := handlers.NewEntitlementsHandler(deps.SubscriptionService)
	surfacesHandler := handlers.NewSurfacesHandler()
	adminHandler := handlers.NewAdminHandler(deps.EntitlementService, deps.Logger)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	adminRoleMW := RequireRole(string(enums.RoleOwner), string(enums.RoleSupport))
	devPayRoleMW := RequireRole(string(enums.RoleOwner))
	timeoutMW := chimiddleware.Timeout(requestTimeout(deps.Config))
	gated := func(feature enums.Feature) func(http.Handler) http.Handler {
		return RequireFeature(deps.Gate, feature)
	}

	r.Get("/healthz", healthHandler.Get)
	r.Get("/readyz", healthHandler.Ready)
	if deps.Config.Metrics.Enabled {
		r.Handle(metricsPath(deps.Config), promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		// Long-lived stream; ends when the quota window resets or the client leaves.
		r.With(authMW).Get("/messages/quota/stream", quotaHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(timeoutMW)
			r.Get("/plans", entitlementsHandler.Plans)

			r.Group(func(r chi.Router) {
				r.Use(authMW)
				r.Get("/entitlements", entitlementsHandler.Current)
				r.With(devPayRoleMW).Post("/subscription", entitlementsHandler.Activate)
				r.Get("/gate/{feature}", gateHandler.Evaluate)
				r.Get("/messages/quota", quotaHandler.Get)
				r.Post("/messages", messagesHandler.Send)

				r.With(gated(enums.FeatureAdvancedFilters)).Get("/filters/advanced", surfacesHandler.Acknowledge(enums.FeatureAdvancedFilters))
				r.With(gated(enums.FeatureVideoCalls)).Post("/calls/video", surfacesHandler.Acknowledge(enums.FeatureVideoCalls))
				r.With(gated(enums.FeatureAudioCalls)).Post("/calls/audio", surfacesHandler.Acknowledge(enums.FeatureAudioCalls))
				r.With(gated(enums.FeatureSeeWhoLikedYou)).Get("/likes/incoming", surfacesHandler.Acknowledge(enums.FeatureSeeWhoLikedYou))
				r.With(gated(enums.FeatureRewind)).Post("/rewind", surfacesHandler.Acknowledge(enums.FeatureRewind))
				r.With(gated(enums.FeatureProfileBoost)).Post("/boost", surfacesHandler.Acknowledge(enums.FeatureProfileBoost))
			})
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(timeoutMW, authMW, adminRoleMW)
		r.Get("/users/{id}/entitlements", adminHandler.Entitlements)
		r.Post("/users/{id}/quota/reset", adminHandler.ResetQuota)
		r.Post("/users/{id}/entitlements/reload", adminHandler.Reload)
	})
}

func requestTimeout(cfg config.Config) time.Duration {
	if cfg.HTTP.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return cfg.HTTP.RequestTimeout
}

func metricsPath(cfg config.Config) string {
	if cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return cfg.Metrics.Path
}
