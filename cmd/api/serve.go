package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bingovintage/loan-engine/internal/config"
	"github.com/bingovintage/loan-engine/internal/handler"
	"github.com/bingovintage/loan-engine/internal/middleware"
	"github.com/bingovintage/loan-engine/internal/repository/postgres"
	"github.com/bingovintage/loan-engine/internal/repository/storage"
	"github.com/bingovintage/loan-engine/internal/service"
	"github.com/bingovintage/loan-engine/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the nightly evaluation worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// connect loads configuration and opens a verified database pool
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Connected to database")
	return cfg, pool, nil
}

// engine is the service graph shared by the serve and evaluate commands
type engine struct {
	store    *postgres.Store
	gate     *service.Gate
	loans    *service.LoanService
	payments *service.PaymentService
	clients  *service.ClientService
	worker   *service.EvaluationWorker
}

func newEngine(cfg *config.Config, pool *pgxpool.Pool, publisher websocket.EventPublisher) *engine {
	store := postgres.NewStore(pool)
	gate := service.NewGate(store, log.Logger)
	locks := service.NewLoanLocks()

	loans := service.NewLoanService(store, gate, locks, log.Logger)
	payments := service.NewPaymentService(store, gate, locks, log.Logger)
	clients := service.NewClientService(store, gate, log.Logger)
	if publisher != nil {
		loans.SetEventPublisher(publisher)
		payments.SetEventPublisher(publisher)
		clients.SetEventPublisher(publisher)
	}

	worker := service.NewEvaluationWorker(loans, store, log.Logger, service.EvaluationWorkerConfig{
		Schedule: cfg.EvaluationCron,
	})

	return &engine{
		store:    store,
		gate:     gate,
		loans:    loans,
		payments: payments,
		clients:  clients,
		worker:   worker,
	}
}

func runServe() error {
	ctx := context.Background()

	cfg, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.DatabaseURL, log.Logger); err != nil {
			return err
		}
	}

	hub := websocket.NewHub()
	eng := newEngine(cfg, pool, hub)

	var documents storage.DocumentRepository
	if cfg.S3.Enabled() {
		s3Repo, err := storage.NewS3DocumentRepository(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize document storage: %w", err)
		}
		documents = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("KYC document storage enabled")
	} else {
		log.Warn().Msg("S3_BUCKET not set, KYC document uploads disabled")
	}
	kyc := service.NewKYCDocumentService(eng.store, eng.gate, documents, log.Logger)

	verifier, err := middleware.NewAuth0Verifier(cfg.Auth0Domain, cfg.Auth0Audience, cfg.RoleClaim)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier)
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, middleware.DefaultBurstSize)
	defer rateLimiter.Stop()

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if err := eng.worker.Start(workerCtx); err != nil {
		return err
	}
	defer eng.worker.Stop()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomiddleware.RequestID())

	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		pingCtx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := eng.store.Ping(pingCtx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	handler.RegisterRoutes(e, authMiddleware, rateLimiter, handler.Handlers{
		Loans:     handler.NewLoanHandler(eng.loans),
		Payments:  handler.NewPaymentHandler(eng.payments),
		Clients:   handler.NewClientHandler(eng.clients, eng.loans),
		KYC:       handler.NewKYCHandler(kyc),
		WebSocket: handler.NewWebSocketHandler(hub, verifier, cfg.CORSOrigins),
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("mode", string(cfg.Mode)).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exited")
	return nil
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			actorID := ""
			if actor, ok := middleware.GetActor(c); ok {
				actorID = actor.ID
			}

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("actor_id", actorID).
				Msg("request")

			return nil
		}
	}
}
