package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finchat/finchat/internal/api"
	"github.com/finchat/finchat/internal/api/uistatic"
	"github.com/finchat/finchat/internal/auth"
	"github.com/finchat/finchat/internal/chart"
	"github.com/finchat/finchat/internal/config"
	"github.com/finchat/finchat/internal/conversation/sqlstore"
	"github.com/finchat/finchat/internal/llm"
	"github.com/finchat/finchat/internal/migrations"
	"github.com/finchat/finchat/internal/narrative"
	"github.com/finchat/finchat/internal/nl2sql"
	"github.com/finchat/finchat/internal/observability"
	"github.com/finchat/finchat/internal/pipeline"
	"github.com/finchat/finchat/internal/schema"
	"github.com/finchat/finchat/internal/storage"
	s3store "github.com/finchat/finchat/internal/storage/s3"
	"github.com/finchat/finchat/internal/warehouse"
	"github.com/finchat/finchat/internal/warehouse/databricks"
	"github.com/finchat/finchat/internal/warehouse/duckdb"
)

func main() {
	cfg, err := config.LoadFromEnv("finchat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	store, err := sqlstore.Open(context.Background(), sqlstore.DBConfig{
		Driver:          cfg.Store.Driver,
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open conversation store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	if cfg.Store.AutoMigrate {
		runner, err := migrations.NewRunner(string(store.Dialect()))
		if err != nil {
			logger.Error("failed to load migrations", slog.Any("error", err))
			os.Exit(1)
		}
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		applied, err := runner.Up(migrateCtx, store.DB(), 0)
		cancel()
		if err != nil {
			logger.Error("failed to migrate conversation store", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("conversation store migrated", slog.Int("applied", applied))
	}

	registry := schema.DefaultRegistry()
	executor, objectStore, err := newWarehouseExecutor(cfg, logger, registry)
	if err != nil {
		logger.Error("failed to initialize warehouse", slog.Any("error", err))
		os.Exit(1)
	}

	model, err := llm.NewOpenAIModel(llm.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize language model", slog.Any("error", err))
		os.Exit(1)
	}

	orchestrator := &pipeline.Orchestrator{
		Schemas:    registry,
		Queries:    nl2sql.NewSynthesizer(llm.NewCachedModel(model, cfg.AI.SQLCacheTTL), logger),
		Warehouse:  executor,
		Charts:     chart.NewSynthesizer(model, logger),
		Narratives: narrative.NewSynthesizer(model, logger),
		Timeouts: pipeline.Timeouts{
			Query:     cfg.Pipeline.QueryTimeout,
			Warehouse: cfg.Pipeline.WarehouseTimeout,
			Chart:     cfg.Pipeline.ChartTimeout,
			Narrative: cfg.Pipeline.NarrativeTimeout,
		},
		Parallel: cfg.Pipeline.Parallel,
		Logger:   logger,
	}

	deps := api.Dependencies{
		Logger:        logger,
		Pipeline:      orchestrator,
		Conversations: store,
		Schemas:       registry,
		UI:            uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckStore(store),
			api.CheckObjectStoreConfig(cfg),
			api.CheckObjectStore(objectStore),
			api.CheckModelConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("warehouse", cfg.Warehouse.Driver),
			slog.String("store", cfg.Store.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

// newWarehouseExecutor returns the executor for the configured driver and,
// for duckdb, the object store its tables are read from.
func newWarehouseExecutor(cfg config.Config, logger *slog.Logger, registry *schema.Registry) (warehouse.Executor, storage.ObjectStore, error) {
	switch cfg.Warehouse.Driver {
	case config.WarehouseDriverDatabricks:
		sessions, err := databricks.NewSessionFactory(databricks.Config{
			ServerHostname: cfg.Warehouse.Databricks.ServerHostname,
			HTTPPath:       cfg.Warehouse.Databricks.HTTPPath,
			AccessToken:    cfg.Warehouse.Databricks.AccessToken,
			Port:           cfg.Warehouse.Databricks.Port,
		})
		if err != nil {
			return nil, nil, err
		}
		return warehouse.NewSQLExecutor(sessions, logger), nil, nil
	case config.WarehouseDriverDuckDB:
		objectStore, err := s3store.New(context.Background(), s3store.ConfigFrom(cfg.ObjectStore))
		if err != nil {
			return nil, nil, fmt.Errorf("initialize object store: %w", err)
		}
		sessions := duckdb.NewSessionFactory(objectStore, logger, duckdb.TablesFromRegistry(registry)...)
		return warehouse.NewSQLExecutor(sessions, logger, duckdb.NormalizeDecimal), objectStore, nil
	default:
		return nil, nil, fmt.Errorf("unsupported warehouse driver %q", cfg.Warehouse.Driver)
	}
}
