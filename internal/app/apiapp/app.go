package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/tgapp/subscriptions/internal/config"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/jobs/expiry"
	pgrepo "github.com/ivankudzin/tgapp/subscriptions/internal/repo/postgres"
	redrepo "github.com/ivankudzin/tgapp/subscriptions/internal/repo/redis"
	authsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/auth"
	entsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/entitlements"
	gatesvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/gate"
	msgsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/messages"
	quotasvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/quota"
	ratesvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/rate"
	subsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/subscriptions"
	"github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/handlers"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	scheduler  *expiry.Scheduler
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	var redisClient *goredis.Client
	if c, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Warn("redis init failed, continuing in degraded mode", zap.Error(err))
	} else {
		redisClient = c
	}

	subscriptionRepo := pgrepo.NewSubscriptionRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)

	var stateStore entsvc.StateStore
	var rateLimiter msgsvc.RateLimiter
	if redisClient != nil {
		stateStore = redrepo.NewEntitlementStateRepo(redisClient, cfg.Redis.StateTTL)
		rateLimiter = ratesvc.NewLimiter(
			redrepo.NewRateRepo(redisClient),
			cfg.Messaging.BurstPer10Sec,
			cfg.Messaging.BurstPerMinute,
		)
	}

	defaultTier, err := enums.ParseTier(cfg.Subscriptions.DefaultTier)
	if err != nil {
		return nil, fmt.Errorf("subscriptions default tier: %w", err)
	}

	entitlementService := entsvc.NewService(stateStore, subscriptionRepo, entsvc.Config{
		DefaultTier: defaultTier,
		Window:      cfg.Messaging.Window,
		IdleTTL:     cfg.Quota.AccountIdleTTL,
	}, log)
	gate := gatesvc.New(entitlementService, gatesvc.StaticNavigator{Path: cfg.Subscriptions.UpgradePath})
	presenter := quotasvc.NewPresenter(entitlementService)
	countdown := quotasvc.NewCountdown(presenter, cfg.Quota.CountdownInterval)
	messageService := msgsvc.NewService(msgsvc.Dependencies{
		Quota:       entitlementService,
		RateLimiter: rateLimiter,
		Store:       messageRepo,
		Logger:      log,
	}, msgsvc.Config{
		MaxBodyRunes: cfg.Messaging.MaxBodyRunes,
	})
	subscriptionService := subsvc.NewService(subsvc.Dependencies{
		Store:        subscriptionRepo,
		Entitlements: entitlementService,
		Logger:       log,
	}, subsvc.Config{
		Period: cfg.Subscriptions.Period,
	})
	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager)

	healthHandler := handlers.NewHealthHandler()
	if pool != nil {
		healthHandler.AddCheck("postgres", pool.Ping)
	}
	if redisClient != nil {
		healthHandler.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	scheduler := expiry.NewScheduler(log)
	closeStores := func() {
		if pool != nil {
			pool.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}
	if pool != nil {
		if err := scheduler.Add(ctx, "expiry audit", scheduleOrDefault(cfg.Subscriptions.ExpirySchedule), expiry.New(subscriptionRepo, log).Run); err != nil {
			closeStores()
			return nil, err
		}
	} else {
		log.Warn("expiry audit disabled without postgres")
	}
	if ttl := cfg.Quota.AccountIdleTTL; ttl > 0 {
		if err := scheduler.Add(ctx, "account prune", expiry.EverySpec(ttl/2), func(context.Context) error {
			if pruned := entitlementService.PruneIdle(); pruned > 0 {
				log.Debug("idle accounts pruned", zap.Int("pruned", pruned))
			}
			return nil
		}); err != nil {
			closeStores()
			return nil, err
		}
	}
	scheduler.Start()

	RegisterRoutes(r, Dependencies{
		AuthService:         authService,
		EntitlementService:  entitlementService,
		Gate:                gate,
		QuotaPresenter:      presenter,
		QuotaCountdown:      countdown,
		MessageService:      messageService,
		SubscriptionService: subscriptionService,
		HealthHandler:       healthHandler,
		Logger:              log,
		Config:              cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		scheduler:  scheduler,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	a.scheduler.Stop()
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

func scheduleOrDefault(spec string) string {
	if strings.TrimSpace(spec) == "" {
		return expiry.DefaultSchedule
	}
	return spec
}
