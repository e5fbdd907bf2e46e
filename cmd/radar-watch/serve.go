package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"radar-watch-service/internal/bus"
	"radar-watch-service/internal/config"
	"radar-watch-service/internal/db"
	"radar-watch-service/internal/gateway"
	apihttp "radar-watch-service/internal/http"
	"radar-watch-service/internal/logger"
	"radar-watch-service/internal/metrics"
	"radar-watch-service/internal/notify"
	"radar-watch-service/internal/parser"
	"radar-watch-service/internal/repository"
	"radar-watch-service/internal/retry"
	"radar-watch-service/internal/service"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the detection consumer, notifiers and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	appLogger := logger.New(cfg.Log.Level, cfg.Log.Format)

	database, err := db.Open(db.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger.Component(appLogger, "db"))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(database); err != nil {
			appLogger.Error().Err(err).Msg("failed to close database")
		}
	}()

	if err := db.Migrate(database, appLogger); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	repo := repository.NewWatchlistRepository(database)
	watchlistService := service.NewWatchlistService(repo, logger.Component(appLogger, "watchlist"))

	telegram := notify.NewTelegramChannel(
		cfg.Telegram.BaseURL,
		cfg.Telegram.BotToken,
		cfg.Notify.HTTPClientTimeout,
		logger.Component(appLogger, "telegram"),
	)

	var (
		personal notify.Sender
		session  *gateway.Session
		status   apihttp.GatewaySession
	)
	if cfg.Gateway.Enabled() {
		session, personal = buildGateway(cfg, m, appLogger)
		status = session
	} else {
		appLogger.Warn().Msg("gateway.base_url not set, personal notifications disabled")
	}

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		BroadcastDestination: cfg.Telegram.ChatID,
		SendTimeout:          cfg.Notify.SendTimeout,
	}, telegram, personal, m, logger.Component(appLogger, "notify"))

	busClient, err := bus.Connect(bus.Config{
		URL:            cfg.NATS.URL,
		Name:           cfg.NATS.Name,
		ConnectTimeout: cfg.NATS.ConnectTimeout,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		Stream:         cfg.NATS.Stream,
		Subjects:       cfg.NATS.Subjects,
		Durable:        cfg.NATS.Durable,
		FilterSubject:  cfg.NATS.FilterSubject,
		AckWait:        cfg.NATS.AckWait,
		MaxDeliver:     cfg.NATS.MaxDeliver,
		NakDelay:       cfg.NATS.NakDelay,
	}, logger.Component(appLogger, "bus"))
	if err != nil {
		return err
	}

	if err := busClient.EnsureStream(ctx); err != nil {
		busClient.Close()
		return err
	}

	publisher := bus.NewConfirmationPublisher(busClient, cfg.NATS.ConfirmationSubject, m, logger.Component(appLogger, "confirmation"))
	monitoring := service.NewMonitoringService(
		parser.New(),
		repo,
		dispatcher,
		publisher,
		m,
		logger.Component(appLogger, "monitoring"),
	)

	if session != nil {
		session.Start()
	}

	// Handlers keep running past the shutdown signal; Close waits for them.
	if err := busClient.Consume(context.WithoutCancel(ctx), func(ctx context.Context, data []byte) error {
		_, err := monitoring.HandleDetection(ctx, string(data))
		return err
	}); err != nil {
		shutdown(appLogger, busClient, session, dispatcher)
		return err
	}

	handler := apihttp.NewHandler(watchlistService, status, apihttp.HealthChecks{
		Database: func(ctx context.Context) error { return db.Ping(ctx, database) },
		Bus:      busClient.IsConnected,
	}, logger.Component(appLogger, "http"))
	router := apihttp.NewRouter(handler, apihttp.RouterConfig{
		CORSOrigins: cfg.HTTP.CORSOrigins,
		AuthEnabled: cfg.Auth.Enabled,
		JWTSecret:   cfg.Auth.JWTSecret,
	}, registry, logger.Component(appLogger, "http"))
	srv := apihttp.NewServer(cfg.HTTP.Addr, router)

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		appLogger.Info().Msg("shutdown signal received")
	case err = <-serveErr:
		appLogger.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		appLogger.Error().Err(shutdownErr).Msg("HTTP server shutdown failed")
	}

	shutdown(appLogger, busClient, session, dispatcher)
	appLogger.Info().Msg("radar-watch stopped")
	return err
}

func buildGateway(cfg *config.Config, m *metrics.Metrics, appLogger zerolog.Logger) (*gateway.Session, notify.Sender) {
	gw := cfg.Gateway
	client := gateway.NewClient(gw.BaseURL, gw.APIKey, cfg.Notify.HTTPClientTimeout, logger.Component(appLogger, "gateway"))

	rc := retry.DefaultConfig()
	rc.MaxAttempts = gw.MaxRetries
	rc.InitialDelay = gw.RetryDelay
	rc.MaxDelay = gw.MaxRetryDelay

	session := gateway.NewSession(client, gateway.SessionConfig{
		Instance:        gw.Instance,
		Integration:     gw.Integration,
		Retry:           rc,
		Timeout:         gw.Timeout,
		RestartDelay:    gw.RestartDelay,
		StartupDelay:    gw.StartupDelay,
		PostCreateDelay: gw.PostCreateDelay,
		ConnectDelay:    gw.ConnectDelay,
		ConnectingDelay: gw.ConnectingDelay,
	}, m, logger.Component(appLogger, "gateway_session"))

	channel := notify.NewGatewayChannel(client, session, gw.SendDelay, logger.Component(appLogger, "gateway_channel"))
	return session, channel
}

// shutdown stops intake and waits for running handlers, so nothing dispatches
// after the session closes and the background sends are drained.
func shutdown(log zerolog.Logger, busClient *bus.Client, session *gateway.Session, dispatcher *notify.Dispatcher) {
	if err := busClient.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close NATS connection")
	}
	if session != nil {
		session.Close()
	}
	dispatcher.Wait()
}

