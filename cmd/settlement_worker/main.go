package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/paycore/paycore/internal/adapters/cache"
	"github.com/paycore/paycore/internal/adapters/providers"
	"github.com/paycore/paycore/internal/adapters/queue"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/core/services"
	"github.com/paycore/paycore/internal/platform/config"
	"github.com/paycore/paycore/internal/repositories/database/pgsql"
	"github.com/paycore/paycore/pkg/database"
	"github.com/redis/go-redis/v9"
)

// The settlement worker consumes the settlement queue and runs the periodic
// recovery sweep. It shares the service wiring with the API server but exposes
// no HTTP surface.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	repos := pgsql.NewRepositoryProvider(dbPool)
	container := services.NewServiceContainer(cfg, repos, services.ContainerDeps{
		Enqueuer:  queue.NewEnqueuer(asynqClient, cfg.SettlementQueue, cfg.SettlementMaxAttempts, cfg.ProviderTimeout),
		Provider:  buildProvider(cfg),
		RateCache: cache.NewRedisRateCache(redisClient, cfg.RateCacheTTL),
	})

	mux := asynq.NewServeMux()
	queue.NewHandler(container.Settlement, container.Recovery, logger).Register(mux)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	if _, err := scheduler.Register(fmt.Sprintf("@every %s", cfg.SweepInterval), queue.NewSweepTask(cfg.SettlementQueue)); err != nil {
		logger.Error("Failed to register recovery sweep", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error("Failed to start scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer scheduler.Shutdown()

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues: map[string]int{
			cfg.SettlementQueue: 10,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Task handling failed",
				slog.String("task_type", task.Type()),
				slog.String("error", err.Error()))
		}),
	})

	logger.Info("Settlement worker starting",
		slog.String("queue", cfg.SettlementQueue),
		slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := server.Run(mux); err != nil {
		logger.Error("Worker failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func buildProvider(cfg *config.Config) portssvc.PaymentProvider {
	if cfg.ProviderName == "paystack" {
		return providers.NewPaystackProvider(cfg.ProviderBaseURL, cfg.ProviderSecretKey, cfg.ProviderTimeout)
	}
	return providers.NewSandboxProvider()
}
