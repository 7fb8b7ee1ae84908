package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"eventsync/config"
	"eventsync/internal/adapters/api"
	"eventsync/internal/adapters/auth"
	"eventsync/internal/adapters/push"
	deliveryhttp "eventsync/internal/delivery/http"
	"eventsync/internal/delivery/http/controllers"
	"eventsync/internal/delivery/http/middleware"
	"eventsync/internal/domain"
	"eventsync/internal/repository/postgres"
	"eventsync/internal/services"
)

// @title eventsync view server
// @version 1.0
// @description Local read model and mutation gateway for the shared event collection.
// @BasePath /
func main() {
	logger := config.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo domain.SessionRepository
	if cfg.DBUrl != "" {
		db, err := sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			logger.Error("failed to open database", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			logger.Warn("session store unavailable", "err", err)
		} else {
			repo = postgres.NewSessionRepository(db)
		}
	}
	session := services.NewSessionResolver(logger, auth.NewJWTReader(), repo).
		Resolve(ctx, cfg.SessionKey, cfg.SessionToken)

	clientID := uuid.NewString()
	logger = logger.With("client_id", clientID)

	header := http.Header{}
	header.Set("X-Client-ID", clientID)
	if cred := session.BearerCredential(); cred != "" {
		header.Set("Authorization", "Bearer "+cred)
	}
	settings := push.DefaultSettings()
	settings.PingInterval = cfg.PushPingInterval
	settings.ReadTimeout = 2 * cfg.PushPingInterval

	httpClient := api.DefaultHTTPClient()
	httpClient.Timeout = cfg.RequestTimeout
	eventsAPI := api.NewClient(cfg.EventsAPIURL, httpClient, logger)
	channel := push.NewChannel(cfg.EventsPushURL, header, settings, logger)

	syncService := services.NewSyncService(logger, eventsAPI, channel)
	gateway := services.NewMutationGateway(logger, eventsAPI, syncService, session, cfg.RequestTimeout)

	if err := syncService.Activate(ctx); err != nil {
		logger.Error("failed to activate sync", "err", err)
		os.Exit(1)
	}
	defer syncService.Teardown()

	eventController := controllers.NewEventController(logger, syncService, gateway)
	sessionController := controllers.NewSessionController(gateway.Identity(), syncService)
	mux := deliveryhttp.NewRouter(eventController, sessionController)

	var handler http.Handler = mux
	if len(cfg.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.AllowedOrigins, handler)
	}
	handler = middleware.LoggingMiddleware(logger, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("view server listening", "port", cfg.Port, "env", cfg.Environment,
			"api", cfg.EventsAPIURL, "push", cfg.EventsPushURL, "role", string(session.Identity.Role))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("view server failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("view server shutdown", "err", err)
	}
}
