package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/auth"
	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/extract"
	"github.com/bizmatters/design-research-gateway/internal/gateway"
	"github.com/bizmatters/design-research-gateway/internal/logger"
	"github.com/bizmatters/design-research-gateway/internal/metrics"
	"github.com/bizmatters/design-research-gateway/internal/observability"
	"github.com/bizmatters/design-research-gateway/internal/orchestration"
	"github.com/bizmatters/design-research-gateway/internal/research"
	"github.com/bizmatters/design-research-gateway/internal/session"

	_ "github.com/bizmatters/design-research-gateway/docs" // swagger docs
)

// @title Design Research Gateway API
// @version 1.0
// @description Gateway between the design-research web app and the Dify workflow API.
// @description
// @description Runs the research workflow in blocking or streaming mode, extracts and cleans the answer,
// @description keeps per-session research text and exports it as txt, docx or html.

// @contact.name API Support
// @contact.email support@bizmatters.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

const (
	storeAttempts   = 10
	storeRetryDelay = 3 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tel, err := observability.Setup(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	invocationMetrics, err := metrics.NewInvocationMetrics(tel.Meter())
	if err != nil {
		log.Fatal("Failed to create invocation metrics", zap.Error(err))
	}

	// Initialize orchestration layer
	validator, err := orchestration.NewRequestValidator(cfg.Workflow.RequiredInputs)
	if err != nil {
		log.Fatal("Failed to build request validator", zap.Error(err))
	}
	extractor := extract.New(extract.Policy{
		MinLength: cfg.Extraction.MinLength,
		MaxDepth:  cfg.Extraction.MaxDepth,
		Fields:    cfg.Extraction.Fields,
	})
	workflowClient := orchestration.NewWorkflowClient(cfg.Upstream, log.Named("workflow"))
	orchestrationService := orchestration.NewService(
		workflowClient,
		orchestration.NewKeyResolver(cfg.Upstream.Keys),
		validator,
		extractor,
		invocationMetrics,
		log.Named("orchestration"),
	)

	// Sessions are optional; without them the gateway is a stateless proxy
	var store session.Store
	var jwtManager *auth.JWTManager
	if cfg.Session.Enabled {
		store = openSessionStore(cfg, log)
		defer store.Close()

		jwtManager, err = auth.NewJWTManager(cfg.Session.JWTSecret, cfg.Session.TokenTTL)
		if err != nil {
			log.Fatal("Failed to initialize JWT manager", zap.Error(err))
		}
	}

	researchClient := research.NewClient(cfg.OpenAI, log.Named("research"))

	// Initialize gateway layer
	gatewayHandler := gateway.NewHandler(cfg, orchestrationService, store, jwtManager, researchClient, log)
	router := gateway.NewRouter(gatewayHandler, tel.Handler())

	// Swagger documentation (public)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// No write timeout: streaming responses stay open as long as the upstream sends
	server := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Starting design research gateway",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.Environment),
			zap.String("upstream", cfg.Upstream.BaseURL),
			zap.Bool("sessions", cfg.Session.Enabled),
			zap.Bool("openai", researchClient.Configured()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tel.Shutdown(ctx); err != nil {
		log.Error("Failed to flush telemetry", zap.Error(err))
	}

	log.Info("Server exited")
}

// openSessionStore retries while the backing store starts up
func openSessionStore(cfg *config.Config, log *zap.Logger) session.Store {
	var lastErr error
	for attempt := 1; attempt <= storeAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := session.Open(ctx, cfg, log.Named("session"))
		cancel()
		if err == nil {
			return store
		}
		lastErr = err
		log.Warn("Waiting for session store",
			zap.String("store", cfg.Session.Store),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", storeAttempts),
			zap.Error(err))
		time.Sleep(storeRetryDelay)
	}
	log.Fatal("Failed to open session store after retries", zap.Error(lastErr))
	return nil
}
