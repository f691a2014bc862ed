// Package main is the entry point for the BuildPlus admin API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"buildplus/internal/config"
	"buildplus/internal/domain/auth"
	"buildplus/internal/domain/datadeletion"
	v1 "buildplus/internal/infrastructure/http/v1"
	"buildplus/internal/infrastructure/storage/postgres"
	"buildplus/internal/infrastructure/storage/postgres/deletion_repo"
	"buildplus/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	help := flag.Bool("help", false, "print configuration reference and exit")
	flag.Parse()
	if *help {
		fmt.Println(config.Usage())
		return
	}

	cfg, err := config.Load(version)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatalw("server failed", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting buildplus server", "version", cfg.Version)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN())
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	log.Infow("database connection established", "max_conns", poolCfg.MaxConns)

	if cfg.Database.AutoMigrate {
		if err := migrateUp(ctx, pool); err != nil {
			return err
		}
	}

	isolation, err := postgres.ParseIsolationLevel(cfg.Database.IsolationLevel)
	if err != nil {
		return err
	}
	txOpts := postgres.DefaultTxOptions()
	txOpts.IsolationLevel = isolation
	txOpts.StatementTimeout = cfg.Database.StatementTimeout
	txManager := postgres.NewTxManager(pool, txOpts)

	// --- Data deletion ---
	var auditor datadeletion.Auditor
	if cfg.Deletion.AuditEnabled {
		auditService, err := postgres.NewAuditService(cfg.Deletion.CompressThreshold)
		if err != nil {
			return fmt.Errorf("create audit service: %w", err)
		}
		defer auditService.Close()
		auditor = auditService
	}

	// Repositories take the TxManager from the request context.
	deletionService := datadeletion.NewService(datadeletion.ServiceConfig{
		Store:   deletion_repo.NewRepo(cfg.Deletion.AdvisoryLocks()),
		Auditor: auditor,
	})
	log.Infow("data deletion service initialized",
		"lock_mode", cfg.Deletion.LockMode,
		"audit", cfg.Deletion.AuditEnabled,
		"isolation", cfg.Database.IsolationLevel,
	)

	// --- JWT ---
	jwtConfig := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
	jwtConfig.Issuer = cfg.Auth.Issuer
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		TxManager:       txManager,
		Database:        pool,
		Logger:          log,
		JWTValidator:    jwtService,
		DeletionService: deletionService,
		AdminRole:       cfg.Auth.AdminRole,
		Version:         cfg.Version,
		GinMode:         cfg.Server.GinMode,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func migrateUp(ctx context.Context, pool *postgres.Pool) error {
	m, err := postgres.NewMigrator(pool)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up(ctx)
}
