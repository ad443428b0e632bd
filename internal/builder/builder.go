package builder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/advisor-backend/internal/api"
	chatapi "github.com/futig/advisor-backend/internal/api/chat"
	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/pkg/formatter"
	"github.com/futig/advisor-backend/internal/pkg/validator"
	"github.com/futig/advisor-backend/internal/repository"
	"github.com/futig/advisor-backend/internal/telegram"
	"github.com/futig/advisor-backend/internal/usecase/query"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	core, err := BuildCore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build core: %w", err)
	}
	logger.Info("Core components initialized")

	db, err := setupPersistence(ctx, cfg, logger)
	if err != nil {
		closeCore(ctx, core, logger)
		return nil, err
	}

	usecase := buildUsecase(cfg, core, db, logger)

	chatHandler := chatapi.NewHandler(usecase)
	router := api.SetupRouter(chatHandler, cfg.HandlerTimeout, logger)
	logger.Info("HTTP router configured")

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
		zap.Bool("persistence", db != nil),
	)

	return &App{
		server: server,
		core:   core,
		db:     db,
		logger: logger,
	}, nil
}

// BuildTelegramBot creates the Telegram bot on top of the same core. The
// returned cleanup releases the worker pool and the database.
func BuildTelegramBot() (telegram.Bot, *zap.Logger, func(), error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.TelegramCfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building Telegram bot",
		zap.String("environment", cfg.Environment),
	)

	core, err := BuildCore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build core: %w", err)
	}

	db, err := setupPersistence(ctx, cfg, logger)
	if err != nil {
		closeCore(ctx, core, logger)
		return nil, nil, nil, err
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		closeCore(shutdownCtx, core, logger)
		if db != nil {
			db.Close()
		}
	}

	usecase := buildUsecase(cfg, core, db, logger)

	bot, err := telegram.NewBot(&cfg.TelegramCfg, usecase, logger)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	logger.Info("Telegram bot built successfully",
		zap.String("environment", cfg.Environment),
		zap.Bool("persistence", db != nil),
	)

	return bot, logger, cleanup, nil
}

// closeCore releases the core on setup failure and shutdown paths
func closeCore(ctx context.Context, core *Core, logger *zap.Logger) {
	if err := core.Close(ctx); err != nil {
		logger.Warn("Worker pool did not drain in time", zap.Error(err))
	}
}

// setupPersistence connects and migrates the database; nil when disabled
func setupPersistence(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	if !cfg.PersistenceEnabled() {
		logger.Warn("DATABASE_URL is not set, query history is disabled")
		return nil, nil
	}

	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	return db, nil
}

func buildUsecase(cfg *config.Config, core *Core, db *pgxpool.Pool, logger *zap.Logger) *query.QueryUsecase {
	// interfaces stay untyped nil when a dependency is absent
	var (
		queryRepo    query.QueryRepository
		feedbackRepo query.FeedbackRepository
		reloader     query.ModelReloader
	)
	if db != nil {
		queryRepo = repository.NewQueryPostgres(db)
		feedbackRepo = repository.NewFeedbackPostgres(db)
	}
	if core.Local != nil {
		reloader = core.Local
	}

	return query.NewUsecase(
		core.Pipeline,
		queryRepo,
		feedbackRepo,
		reloader,
		formatter.NewFactory(cfg.APICfg.PDFFontPath),
		validator.New(cfg.APICfg),
		cfg.HistoryRetry,
		logger,
	)
}
