package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqttbroker "github.com/mochi-mqtt/server/v2"
	brokerauth "github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"

	"smartfarm-backend/backend/internal/api"
	"smartfarm-backend/backend/internal/auth"
	"smartfarm-backend/backend/internal/automation"
	"smartfarm-backend/backend/internal/config"
	"smartfarm-backend/backend/internal/devices"
	"smartfarm-backend/backend/internal/liveness"
	"smartfarm-backend/backend/internal/mqttapi"
	"smartfarm-backend/backend/internal/scheduler"
	"smartfarm-backend/backend/internal/services"
	"smartfarm-backend/backend/internal/storage"
	"smartfarm-backend/backend/internal/topics"
	"smartfarm-backend/backend/pkg/migrator"
	"smartfarm-backend/backend/pkg/mqtt"
	"smartfarm-backend/backend/pkg/utils"
)

const rateLimitTTL = 2 * time.Minute

func main() {
	sigCtx, sigCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigCancel()

	config, err := config.New()
	if err != nil {
		fatalIfErr(slog.Default(), fmt.Errorf("failed to create config: %w", err))
	}

	defer utils.LogOnError(slog.Default(), config.Close, "failed to close config")

	logger := getLogger(config)

	// Database + migrations
	db, err := storage.Open(config.Dialect, config.Database)
	fatalIfErr(logger, err)

	defer utils.LogOnError(logger, db.Close, "failed to close database")

	m, err := migrator.New(logger, config.Dialect.MigrationFS(), config.MigratorURL())
	fatalIfErr(logger, err)
	fatalIfErr(logger, m.Migrate())

	store := storage.New(db)

	// MQTT client and domain components
	client, err := mqtt.NewClient(logger, mqtt.ClientOptions{
		BrokerURL: config.MQTTBroker,
		ClientID:  config.MQTTClientID,
		Username:  config.MQTTUsername,
		Password:  config.MQTTPassword,
	})
	fatalIfErr(logger, err)

	t := topics.New(config.MQTTTopicPrefix)

	tracker := liveness.NewTracker(logger, store, nil)
	gateway := devices.NewGateway(logger, store, tracker, client, t, liveness.DefaultDeviceID)
	engine := automation.NewEngine(logger, store, client, gateway, t, config.AutoControlMode)
	schedEngine := scheduler.NewEngine(logger, store, gateway, config.ServoFeedRepeat)

	tracker.SetAlertPublisher(engine)

	// Subscriptions must be registered before the client connects.
	mqttapi.NewRouter(logger, t, engine, tracker).Register(client)

	// Optional embedded broker for single-box deployments.
	var broker *mqttbroker.Server

	if config.MQTTEmbeddedBroker {
		addr := fmt.Sprintf(":%d", config.MQTTBrokerPort)
		broker, err = getMQTTServer(logger, addr)
		fatalIfErr(logger, err)

		go func() {
			logger.Info("MQTT broker listening", slog.String("address", addr))

			if err := broker.Serve(); err != nil {
				logger.Error("MQTT broker failed", utils.ErrAttr(err))
				sigCancel()
			}
		}()
	}

	fatalIfErr(logger, client.Connect())

	if err := engine.BroadcastThresholds(sigCtx); err != nil {
		logger.Error("initial threshold broadcast failed", utils.ErrAttr(err))
	}

	go schedEngine.Run(sigCtx)

	// HTTP server
	authManager := auth.NewManager(config.JWTSecret, config.JWTAccessTTL)
	svc := services.New(logger, store, authManager, engine, gateway, tracker, client)

	handler := api.NewHandler(logger, svc)
	mw := api.NewMiddlewareHandler(logger, authManager)
	limiter := api.NewIPRateLimiter(config.RateLimitRPS, config.RateLimitBurst, rateLimitTTL)
	// Credential endpoints get a much smaller bucket to slow down guessing.
	authLimiter := api.NewIPRateLimiter(1, 5, rateLimitTTL)

	httpServer := api.NewHTTPServer(logger, fmt.Sprintf(":%d", config.Port), handler.Routes(mw, limiter, authLimiter))
	httpServer.StartOnBackground(sigCancel)

	// Wait for signal (either OS or some failure)
	<-sigCtx.Done()
	logger.Info("received signal, shutting down...")

	if err := httpServer.ShutdownWithDefaultTimeout(); err != nil {
		logger.Error("http server shutdown failed", utils.ErrAttr(err))
	}

	logger.Info("disconnecting from MQTT broker...")
	client.Disconnect()

	if broker != nil {
		logger.Info("mqtt broker shutting down...")

		if err := broker.Close(); err != nil {
			logger.Error("mqtt broker shutdown failed", utils.ErrAttr(err))
		}
	}

	logger.Info("server exited gracefully")
}

func getMQTTServer(l *slog.Logger, addr string) (*mqttbroker.Server, error) {
	server := mqttbroker.New(&mqttbroker.Options{
		Logger: l.With(slog.String("component", "mqtt-broker")),
	})
	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})

	err := server.AddListener(tcp)
	if err != nil {
		return nil, err
	}

	if err := server.AddHook(new(brokerauth.AllowHook), nil); err != nil {
		return nil, err
	}

	return server, nil
}

func getLogger(config *config.Config) *slog.Logger {
	logOptions := slog.HandlerOptions{
		Level:       config.LogLevel,
		ReplaceAttr: utils.SlogReplacer,
	}

	return slog.New(slog.NewJSONHandler(config.LogOutput, &logOptions))
}

func fatalIfErr(l *slog.Logger, err error) {
	if err == nil {
		return
	}

	l.Error("error", utils.ErrAttr(err))
	os.Exit(1)
}
