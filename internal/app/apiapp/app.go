package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/milanapp/engine/internal/config"
	pgrepo "github.com/milanapp/engine/internal/repo/postgres"
	redrepo "github.com/milanapp/engine/internal/repo/redis"
	authsvc "github.com/milanapp/engine/internal/services/auth"
	contactssvc "github.com/milanapp/engine/internal/services/contacts"
	interestssvc "github.com/milanapp/engine/internal/services/interests"
	notifysvc "github.com/milanapp/engine/internal/services/notify"
	quotasvc "github.com/milanapp/engine/internal/services/quota"
	ratesvc "github.com/milanapp/engine/internal/services/rate"
	reconsidersvc "github.com/milanapp/engine/internal/services/reconsider"
)

type App struct {
	cfg          config.Config
	logger       *zap.Logger
	server       *http.Server
	postgres     *pgxpool.Pool
	redis        *goredis.Client
	notifier     *notifysvc.Notifier
	notifyCancel context.CancelFunc
	notifyDone   chan struct{}
	httpRouter   http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)

	interestRepo := pgrepo.NewInterestRepo(pool)
	contactRepo := pgrepo.NewContactRequestRepo(pool)
	consumptionRepo := pgrepo.NewConsumptionRepo(pool)
	declinedRepo := pgrepo.NewDeclinedProfileRepo(pool)
	blockedRepo := pgrepo.NewBlockedProfileRepo(pool)
	identityRepo := pgrepo.NewIdentityRepo(pool)
	notificationRepo := pgrepo.NewNotificationRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)

	rateLimiter := ratesvc.NewLimiter(
		rateRepo,
		ratesvc.Limits{
			PerMinute: cfg.Engine.Rate.ExpressPerMinute,
			Per10Sec:  cfg.Engine.Rate.ExpressPer10Sec,
		},
		ratesvc.Limits{
			PerMinute: cfg.Engine.Rate.ContactPerMinute,
			Per10Sec:  cfg.Engine.Rate.ContactPer10Sec,
		},
	)

	quotaService := quotasvc.NewService(identityRepo, consumptionRepo, quotasvc.Config{
		Free: quotasvc.TierLimits{
			ChatLimit:    cfg.Engine.Tiers.Free.ChatLimit,
			ContactLimit: cfg.Engine.Tiers.Free.ContactLimit,
		},
		SixMonth: quotasvc.TierLimits{
			ChatLimit:    cfg.Engine.Tiers.SixMonth.ChatLimit,
			ContactLimit: cfg.Engine.Tiers.SixMonth.ContactLimit,
		},
		OneYear: quotasvc.TierLimits{
			ChatLimit:    cfg.Engine.Tiers.OneYear.ChatLimit,
			ContactLimit: cfg.Engine.Tiers.OneYear.ContactLimit,
		},
		InterestCredits: cfg.Engine.BoostPacks.InterestCredits,
		ContactCredits:  cfg.Engine.BoostPacks.ContactCredits,
	})

	notifier := notifysvc.NewNotifier(notificationRepo, log, cfg.Engine.NotifyQueueSize)
	notifyCtx, notifyCancel := context.WithCancel(context.Background())
	notifyDone := make(chan struct{})
	go func() {
		defer close(notifyDone)
		_ = notifier.Run(notifyCtx)
	}()

	interestService := interestssvc.NewService(interestssvc.Dependencies{
		Pool:        pool,
		Interests:   interestRepo,
		Contacts:    contactRepo,
		Blocks:      blockedRepo,
		Markers:     declinedRepo,
		Profiles:    identityRepo,
		Quota:       quotaService,
		RateLimiter: rateLimiter,
		Messages:    messageRepo,
		Notifier:    notifier,
	})
	contactService := contactssvc.NewService(contactssvc.Dependencies{
		Pool:        pool,
		Contacts:    contactRepo,
		Interests:   interestRepo,
		Blocks:      blockedRepo,
		Markers:     declinedRepo,
		Identities:  identityRepo,
		Quota:       quotaService,
		RateLimiter: rateLimiter,
		Notifier:    notifier,
	})
	reconsiderService := reconsidersvc.NewService(reconsidersvc.Dependencies{
		Pool:      pool,
		Markers:   declinedRepo,
		Interests: interestRepo,
		Contacts:  contactRepo,
		Blocks:    blockedRepo,
	})

	RegisterRoutes(r, Dependencies{
		InterestService:   interestService,
		ContactService:    contactService,
		ReconsiderService: reconsiderService,
		QuotaService:      quotaService,
		NotificationRepo:  notificationRepo,
		JWTManager:        jwtManager,
		Logger:            log,
		Config:            cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:          cfg,
		logger:       log,
		server:       server,
		postgres:     pool,
		redis:        redisClient,
		notifier:     notifier,
		notifyCancel: notifyCancel,
		notifyDone:   notifyDone,
		httpRouter:   r,
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

	// Stop the notifier after the server so in-flight requests can still
	// enqueue; Run drains the queue before returning.
	a.notifyCancel()
	select {
	case <-a.notifyDone:
	case <-ctx.Done():
	}

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
