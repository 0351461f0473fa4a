package sweeperapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/milanapp/engine/internal/config"
	"github.com/milanapp/engine/internal/jobs/sweeper"
	pgrepo "github.com/milanapp/engine/internal/repo/postgres"
	redrepo "github.com/milanapp/engine/internal/repo/redis"
	notifysvc "github.com/milanapp/engine/internal/services/notify"
)

// App runs the expiry sweep on a fixed interval. It is a separate binary
// so the sweep schedule is independent of API deployments; overlapping
// instances are safe because the sweep itself is guarded.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	notifier *notifysvc.Notifier
	job      *sweeper.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for sweeper app: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	interestRepo := pgrepo.NewInterestRepo(pool)
	contactRepo := pgrepo.NewContactRequestRepo(pool)
	identityRepo := pgrepo.NewIdentityRepo(pool)
	notificationRepo := pgrepo.NewNotificationRepo(pool)
	sweepRepo := redrepo.NewSweepRepo(redisClient)

	notifier := notifysvc.NewNotifier(notificationRepo, logger, cfg.Engine.NotifyQueueSize)
	job := sweeper.New(
		interestRepo,
		contactRepo,
		sweepRepo,
		identityRepo,
		notifier,
		cfg.Engine.RequestExpiryDays,
		cfg.Engine.SweepBatchSize,
		logger,
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		postgres: pool,
		redis:    redisClient,
		notifier: notifier,
		job:      job,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("sweeper app started")

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.notifier.Run(ctx)
	}()

	if err := a.runSweepLoop(ctx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.logger.Info("sweeper app stopped")
	return nil
}

func (a *App) runSweepLoop(ctx context.Context) error {
	interval := a.cfg.Engine.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	if err := a.job.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.job.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
