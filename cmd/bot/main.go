package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/planbot/internal/app"
	"github.com/Freeeeeet/planbot/internal/callback"
	"github.com/Freeeeeet/planbot/internal/callbackstore"
	"github.com/Freeeeeet/planbot/internal/config"
	"github.com/Freeeeeet/planbot/internal/controller"
	"github.com/Freeeeeet/planbot/internal/controller/dispatcher"
	"github.com/Freeeeeet/planbot/internal/controller/flows"
	"github.com/Freeeeeet/planbot/internal/controller/handlers"
	"github.com/Freeeeeet/planbot/internal/controller/messenger"
	"github.com/Freeeeeet/planbot/internal/metrics"
	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/Freeeeeet/planbot/internal/render"
	"github.com/Freeeeeet/planbot/internal/repository"
	"github.com/Freeeeeet/planbot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Bot stopped with error", zap.Error(err))
	}
	logger.Info("Bot stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting plan bot",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.StorageDriver),
		zap.String("callback_store", cfg.CallbackStore),
	)

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, m, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	scheduler := app.NewScheduler(cfg.Location(), m, logger)
	store, closeStore, err := openCallbackStore(ctx, cfg, scheduler)
	if err != nil {
		return err
	}
	defer closeStore()

	secret, err := cfg.Secret()
	if err != nil {
		return err
	}
	issuer := callback.NewIssuer(callback.NewCodec(secret), store)

	svc := service.NewPlanService(
		repo,
		render.NewWeekRenderer(cfg.Location()),
		model.NewAdmins(cfg.AdminIDs...),
		cfg.Location(),
		logger,
	)

	// ctrl назначается ниже, до запуска polling
	var ctrl *controller.BotController
	b, err := bot.New(cfg.TelegramToken, bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		ctrl.HandleUpdate(ctx, b, update)
	}))
	if err != nil {
		return err
	}

	gateway := messenger.NewTelegram(b)
	replier := handlers.NewErrorReplier(gateway, m, logger)

	registry := handlers.NewRegistry(replier, svc.IsAdmin, m, logger)
	planFlows := flows.New(svc, issuer, gateway, logger)
	registry.MustRegister(planFlows.Commands()...)
	registry.MustRegister(handlers.NewCommands(svc, gateway, registry, logger).List()...)

	disp := dispatcher.New(issuer, gateway, replier.Reply, m, logger)
	if err := planFlows.Register(disp); err != nil {
		return err
	}

	ctrl = controller.NewBotController(b, registry, disp, replier, logger)
	if err := ctrl.RegisterHandlers(ctx); err != nil {
		logger.Warn("Commands menu not updated", zap.Error(err))
	}

	scheduler.Start()
	defer scheduler.Stop()

	ctrl.Start(ctx)
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Repository, func(), error) {
	if cfg.StorageDriver != config.StoragePostgres {
		logger.Warn("Using in-memory storage, plans are lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repository.NewPlanRepository(pool, logger), pool.Close, nil
}

func openCallbackStore(ctx context.Context, cfg *config.Config, scheduler *app.Scheduler) (callbackstore.Store, func(), error) {
	if cfg.CallbackStore != config.CallbackStoreRedis {
		store := callbackstore.NewMemory(cfg.CallbackTTL)
		if err := scheduler.ScheduleSweep(ctx, cfg.SweepSpec, store); err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return callbackstore.NewRedis(client, cfg.CallbackTTL), func() { _ = client.Close() }, nil
}
