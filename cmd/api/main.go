package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/code-networkershome/certificate-generator/internal/certificates"
	"github.com/code-networkershome/certificate-generator/internal/certificates/memory"
	"github.com/code-networkershome/certificate-generator/internal/certificates/postgres"
	"github.com/code-networkershome/certificate-generator/internal/certificates/seed"
	"github.com/code-networkershome/certificate-generator/internal/convert"
	"github.com/code-networkershome/certificate-generator/internal/editor"
	"github.com/code-networkershome/certificate-generator/internal/handlers"
	"github.com/code-networkershome/certificate-generator/internal/platform/config"
	"github.com/code-networkershome/certificate-generator/internal/platform/observability"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	templates, certs, db, err := buildStores(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise store", zap.Error(err))
	}
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("database close error", zap.Error(err))
			}
		}()
	}

	if err := seed.Apply(ctx, templates, time.Now().UTC()); err != nil {
		logger.Fatal("failed to seed templates", zap.Error(err))
	}

	artefacts, err := certificates.NewDiskStore(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("failed to initialise artefact storage", zap.Error(err))
	}

	converter, err := buildConverter(logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise converter", zap.Error(err))
	}

	service, err := certificates.NewService(certificates.Deps{
		Templates:       templates,
		Certificates:    certs,
		Converter:       converter,
		Artefacts:       artefacts,
		DownloadBaseURL: cfg.Storage.DownloadBaseURL,
		Canvas:          editor.Size{Width: cfg.Editor.CanvasWidth, Height: cfg.Editor.CanvasHeight},
		Logger:          logger.Named("certificates"),
	})
	if err != nil {
		logger.Fatal("failed to initialise certificate service", zap.Error(err))
	}

	ready := func(ctx context.Context) error {
		if db == nil {
			return nil
		}
		return db.PingContext(ctx)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(ready)),
		handlers.WithCertificateRoutes(handlers.NewCertificateHandlers(service).Routes),
		handlers.WithTemplateRoutes(handlers.NewTemplateHandlers(service).Routes),
		handlers.WithDownloadsHandler(handlers.NewDownloadsHandler(artefacts.Root())),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("certificate generator api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildStores selects Postgres when a database URL is configured and falls
// back to the in-memory store otherwise. The returned *sql.DB is nil for the
// in-memory case.
func buildStores(ctx context.Context, logger *zap.Logger, cfg config.Config) (certificates.TemplateRepository, certificates.CertificateRepository, *sql.DB, error) {
	if cfg.Database.URL == "" {
		logger.Warn("no database configured; using in-memory store")
		store := memory.NewStore()
		return store, store, nil, nil
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, nil, nil, err
	}
	store := postgres.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	return store, store, db, nil
}

func buildConverter(logger *zap.Logger, cfg config.Config) (convert.Converter, error) {
	if cfg.Converter.Endpoint == "" {
		logger.Warn("no converter endpoint configured; finalize requests will fail")
		return unconfiguredConverter{}, nil
	}
	return convert.NewHTTPConverter(cfg.Converter.Endpoint, nil, cfg.Converter.Timeout)
}

// unconfiguredConverter keeps preview and template endpoints usable in local
// setups without a conversion service.
type unconfiguredConverter struct{}

func (unconfiguredConverter) Convert(context.Context, convert.Request) ([]byte, error) {
	return nil, errors.New("convert: no converter endpoint configured")
}
