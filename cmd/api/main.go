package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dernekpanel/api/internal/handlers"
	"github.com/dernekpanel/api/internal/platform/config"
	pfirestore "github.com/dernekpanel/api/internal/platform/firestore"
	"github.com/dernekpanel/api/internal/platform/observability"
	"github.com/dernekpanel/api/internal/platform/requestctx"
	fsrepo "github.com/dernekpanel/api/internal/repositories/firestore"
	"github.com/dernekpanel/api/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		os.Stderr.WriteString("failed to initialise logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("api terminated", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	registry, err := fsrepo.NewRegistry(provider)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := registry.Close(ctx); err != nil {
			logger.Warn("failed to close repositories", zap.Error(err))
		}
	}()

	svcLogger := serviceLogger(logger)

	duplicateService, err := services.NewDuplicateService(services.DuplicateServiceDeps{
		Repository: registry.Beneficiaries(),
		Clock:      time.Now,
		Logger:     svcLogger,
		Config:     cfg.Dedup,
	})
	if err != nil {
		return err
	}

	beneficiaryService, err := services.NewBeneficiaryService(services.BeneficiaryServiceDeps{
		Repository: registry.Beneficiaries(),
		Duplicates: duplicateService,
		Clock:      time.Now,
		Logger:     svcLogger,
	})
	if err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:        logger,
		ProjectID:     cfg.Firestore.ProjectID,
		Health:        handlers.NewHealthHandlers(registry.Health()),
		Beneficiaries: handlers.NewBeneficiaryHandlers(duplicateService, beneficiaryService),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	return <-errCh
}

// serviceLogger adapts the request-scoped zap logger to the map-based logging
// hook the services accept.
func serviceLogger(base *zap.Logger) func(context.Context, string, map[string]any) {
	return func(ctx context.Context, msg string, fields map[string]any) {
		logger := requestctx.Logger(ctx)
		if logger == requestctx.NoopLogger() && base != nil {
			logger = base
		}
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(msg, zapFields...)
	}
}
