package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"workflow-governance/backend/internal/api"
	"workflow-governance/backend/internal/audit"
	"workflow-governance/backend/internal/auth"
	"workflow-governance/backend/internal/clock"
	"workflow-governance/backend/internal/config"
	"workflow-governance/backend/internal/draft"
	"workflow-governance/backend/internal/logging"
	"workflow-governance/backend/internal/mcp"
	"workflow-governance/backend/internal/recommend"
	"workflow-governance/backend/internal/repository"
	"workflow-governance/backend/internal/services"
	"workflow-governance/backend/internal/telemetry"
	"workflow-governance/backend/internal/validation"
)

// app is the wired service. Close releases what newApp opened.
type app struct {
	echo       *echo.Echo
	logger     *logging.Logger
	store      repository.DocumentStore
	drafts     *draft.Registry
	dispatcher *audit.Dispatcher

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openStore(ctx, cfg); err != nil {
		return nil, err
	}
	kv, err := a.openDraftKV(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.drafts = draft.NewRegistry(kv,
		draft.WithTTL(cfg.Governance.DraftTTL),
		draft.WithAutoSaveDelay(cfg.Governance.AutoSaveDelay),
		draft.WithLogger(logger))

	catalog, err := recommend.LoadCatalog(cfg.Governance.CatalogPath)
	if err != nil {
		return nil, err
	}

	registry := telemetry.NewRegistry()
	clk := clock.Real{}
	ledger := audit.NewLog(a.store, clk)
	a.dispatcher = audit.NewDispatcher(ledger, logger, audit.NewMetrics(registry), cfg.Governance.AuditQueueSize)
	actions, err := telemetry.NewActionCounter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create action counter: %w", err)
	}

	vctx := validation.Context{
		EnforceCompliance: cfg.Governance.EnforceCompliance,
		HighCostThreshold: cfg.Governance.HighCostThreshold,
	}
	svc := services.NewGovernanceService(a.store, a.dispatcher, clk, logger,
		services.WithLedger(ledger),
		services.WithValidation(vctx),
		services.WithActionCounter(actions))
	logger.Info("Service layer initialized", "bundles", len(catalog))

	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("auth initialization failed: %w", err)
	}
	if authz.Bypass() {
		logger.Warn("Authentication bypass is enabled; all requests act as the local developer")
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler(logger)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(cfg.Telemetry.ServiceName))

	server := api.NewServer(svc, a.drafts, catalog, vctx, a.store, logger)
	server.Version = version

	e.GET("/health", server.Health)
	e.GET("/metrics", echo.WrapHandler(telemetry.Handler(registry)))
	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))
	e.GET("/openapi.yaml", api.SpecHandler(cfg.Auth.OktaDomain))
	e.GET("/docs", api.SwaggerHandler(cfg.Auth.SwaggerClientID))
	e.GET("/docs/oauth2-redirect.html", api.OAuthRedirectHandler)

	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	api.RegisterHandlers(apiGroup, server)

	mcpServer := mcp.NewServer(svc, catalog, vctx, version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.MCPServer())
	mcpHandler := echo.WrapHandler(authz.RequireAuth(mcpHandlers))
	e.Any("/mcp", mcpHandler)
	e.Any("/mcp/*", mcpHandler)

	a.echo = e
	return a, nil
}

func (a *app) openStore(ctx context.Context, cfg *config.Config) error {
	if cfg.Store.Driver == "memory" {
		a.logger.Warn("Using the in-memory document store; data is lost on restart")
		a.store = repository.NewMemoryStore()
		return nil
	}

	pool, err := initDatabase(ctx, cfg, a.logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, pool.Close)

	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	a.store = store
	a.logger.Info("Database connected")
	return nil
}

func (a *app) openDraftKV(ctx context.Context, cfg *config.Config) (draft.KV, error) {
	if cfg.Redis.Addr == "" {
		return draft.NewMemoryKV(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	a.logger.Info("Draft store connected", "redis", cfg.Redis.Addr)
	return draft.NewRedisKV(client, draft.WithKeyPrefix(cfg.Redis.Prefix)), nil
}

// Close writes pending auto-saves, drains the audit queue and closes
// connections, in that order.
func (a *app) Close() {
	if a.drafts != nil {
		if n := a.drafts.Flush(); n > 0 {
			a.logger.Info("Flushed pending drafts", "count", n)
		}
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
