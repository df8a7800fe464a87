package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pipeline_backend/internal/audit"
	"pipeline_backend/internal/events"
	"pipeline_backend/internal/imports"
	importservice "pipeline_backend/internal/imports/service"
	leadrepo "pipeline_backend/internal/leads/repository"
	"pipeline_backend/internal/notification"
	"pipeline_backend/internal/notification/trigger"
	pipelinerepo "pipeline_backend/internal/pipelines/repository"
	"pipeline_backend/internal/scheduler"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/db"
	"pipeline_backend/platform/logger"
	"pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()
	audit.NewSubscriber(audit.NewRepository(pool), log).RegisterHandlers(eventBus)

	var redisClient *redis.Client
	if cfg.IsSchedulerEnabled() {
		redisClient, err = scheduler.NewRedisClient(cfg)
		if err != nil {
			log.Error("failed to initialize redis client", "error", err)
			panic("failed to initialize redis client: " + err.Error())
		}
		defer func() { _ = redisClient.Close() }()
	}

	pipelines := pipelinerepo.New(pool)

	// One State per process: every engine built here shares the ledger and
	// the running flag.
	var ledger trigger.Ledger
	if cfg.GetNotifyDedupBackend() == "redis" {
		ledger = trigger.NewRedisLedger(redisClient)
	}
	state := trigger.NewState(ledger)

	notificationModule := notification.NewModule(pool)
	engine, err := notificationModule.NewEngine(cfg, state, pipelines, eventBus, log)
	if err != nil {
		log.Error("failed to initialize notification engine", "error", err)
		panic("failed to initialize notification engine: " + err.Error())
	}
	if err := engine.Start(ctx); err != nil {
		log.Error("failed to start notification engine", "error", err)
		panic("failed to start notification engine: " + err.Error())
	}
	defer engine.Stop()

	if redisClient == nil {
		log.Warn("REDIS_URL not configured; import worker disabled")
		<-ctx.Done()
		return
	}

	val := validator.New()
	importsModule := imports.NewModule(
		cfg,
		leadrepo.New(pool),
		pipelines,
		importservice.NewRedisProgressStore(redisClient),
		nil,
		val,
		eventBus,
		log,
	)

	worker, err := scheduler.NewWorker(cfg, importsModule.Service, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
