package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"carmonitor/internal/app"
	"carmonitor/internal/config"
	"carmonitor/internal/handler"
	"carmonitor/internal/mongostore"
	"carmonitor/internal/mqttsink"
	internalRedis "carmonitor/internal/redis"
	"carmonitor/internal/repository/postgres"
	"carmonitor/internal/service"
	"carmonitor/internal/simulator"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment")
	}

	// Load configuration.
	cfg := config.Load()
	app.SetupLogging(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := app.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("Failed to apply migrations")
	}

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	sink, closeSinks := wireSinks(ctx, cfg)
	defer closeSinks()

	// Simulator and seeding outlive the startup timeout.
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	// Wire dependencies.
	server, engine, costService := wireServer(db, redisClient, nrApp, sink, cfg)

	if cfg.Simulator.SeedCosts {
		if _, err := costService.Seed(runCtx); err != nil {
			log.WithError(err).Error("Trip cost seeding failed")
		}
	}

	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		engine.Run(runCtx)
	}()

	// Start server in goroutine.
	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopRun()
	<-simDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}

// wireSinks connects the configured telemetry transports. With none enabled,
// samples are logged.
func wireSinks(ctx context.Context, cfg *config.Config) (simulator.Sink, func()) {
	var sinks simulator.MultiSink
	var closers []func()

	if cfg.MQTT.Enabled {
		client, err := app.NewMQTTClient(cfg.MQTT)
		if err != nil {
			log.WithError(err).Error("MQTT sink disabled")
		} else {
			sinks = append(sinks, mqttsink.NewPublisher(client, cfg.MQTT.TopicPrefix, byte(cfg.MQTT.QoS)))
			closers = append(closers, func() { disconnectMQTT(client) })
		}
	}

	if cfg.Mongo.Enabled {
		client, err := app.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			log.WithError(err).Error("Mongo telemetry archive disabled")
		} else {
			coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.TelemetryCollection)
			sinks = append(sinks, mongostore.NewTelemetryArchive(coll))
			closers = append(closers, func() { disconnectMongo(client) })
		}
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if len(sinks) == 0 {
		return simulator.LogSink{}, closeAll
	}
	return sinks, closeAll
}

func disconnectMQTT(client mqtt.Client) {
	client.Disconnect(250)
}

func disconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("Mongo disconnect failed")
	}
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	sink simulator.Sink,
	cfg *config.Config,
) (*http.Server, *simulator.Engine, *service.TripCostService) {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	notifier := internalRedis.NewNotifier(redisClient)
	idempotencyStore := internalRedis.NewIdempotencyStore(redisClient)

	// Initialize repositories.
	transactor := postgres.NewTransactor(db)
	tripRepo := postgres.NewTripRepository(db)
	vehicleRepo := postgres.NewVehicleRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	costRepo := postgres.NewTripCostRepository(db)

	// Initialize services.
	notificationService := service.NewNotificationService(notifier)
	costService := service.NewTripCostService(costRepo, cacheStore)
	tripService := service.NewTripService(transactor, tripRepo, vehicleRepo, driverRepo, costService, lockStore, notificationService)

	engine := simulator.NewEngine(
		simulator.Config{
			Enabled:  cfg.Simulator.Enabled,
			Interval: cfg.Simulator.Interval,
			Workers:  cfg.Simulator.Workers,
		},
		vehicleRepo,
		tripService,
		sink,
		notificationService,
		simulator.WithNewRelic(nrApp),
	)

	// Initialize handlers.
	tripHandler := handler.NewTripHandler(tripService)
	vehicleHandler := handler.NewVehicleHandler(tripService, engine)
	costHandler := handler.NewCostHandler(costService)
	simulatorHandler := handler.NewSimulatorHandler(engine)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:      tripHandler,
		VehicleHandler:   vehicleHandler,
		CostHandler:      costHandler,
		SimulatorHandler: simulatorHandler,
		Idempotency:      idempotencyStore,
		NewRelicApp:      nrApp,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
	})

	// Create HTTP server.
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return server, engine, costService
}
