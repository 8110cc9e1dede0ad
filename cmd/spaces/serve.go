package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/spaces-core/internal/api"
	"github.com/nerrad567/spaces-core/internal/audit"
	"github.com/nerrad567/spaces-core/internal/auth"
	"github.com/nerrad567/spaces-core/internal/events"
	"github.com/nerrad567/spaces-core/internal/infrastructure/config"
	"github.com/nerrad567/spaces-core/internal/infrastructure/database"
	"github.com/nerrad567/spaces-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/spaces-core/internal/infrastructure/logging"
	"github.com/nerrad567/spaces-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/spaces-core/internal/space"
	"github.com/nerrad567/spaces-core/internal/telemetry"
)

// run is the server lifecycle, separated from the command for testability.
// It returns nil on clean shutdown after ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Spaces Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	mqttClient, err := connectMQTT(cfg.MQTT, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	influxClient, err := connectInfluxDB(ctx, cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	hasher, err := auth.NewHasher(cfg.Security.Password.Algorithm, cfg.Security.Password.Cost)
	if err != nil {
		return fmt.Errorf("configuring password hasher: %w", err)
	}
	tokens := auth.NewTokenService(cfg.Security.JWT.Secret, cfg.GetAccessTokenTTL())

	metrics := telemetry.New()
	hub := api.NewHub(cfg.WebSocket, log)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Slow sinks are queued and drained in the background.
	sinkCtx, stopSinks := context.WithCancel(context.Background())
	queues := []*events.Async{
		events.NewAsync("audit", audit.NewRecorder(auditRepo, log), cfg.Events.BufferSize, log),
	}
	if mqttClient != nil {
		qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0..2
		queues = append(queues, events.NewAsync("mqtt",
			events.NewMQTTSink(mqttClient, cfg.MQTT.TopicPrefix, qos, log),
			cfg.Events.BufferSize, log))
	}
	if influxClient != nil {
		queues = append(queues, events.NewAsync("influxdb",
			events.NewPointSink(influxClient), cfg.Events.BufferSize, log))
	}

	var sinksWG sync.WaitGroup
	sink := events.Fanout{metrics, events.NewBroadcastSink(hub)}
	for _, q := range queues {
		sink = append(sink, q)
		sinksWG.Add(1)
		go func() {
			defer sinksWG.Done()
			q.Run(sinkCtx)
		}()
	}
	// Runs before the clients above are closed so queued events drain first.
	defer func() {
		stopSinks()
		sinksWG.Wait()
		log.Info("event queues drained")
	}()

	deps := api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		RateLimit: cfg.Security.RateLimit,
		Logger:    log,
		Auth:      auth.NewService(auth.NewUserRepository(db.DB), hasher, tokens, sink),
		Spaces:    space.NewService(space.NewSQLiteRepository(db.DB), hasher, sink),
		Tokens:    tokens,
		AuditRepo: auditRepo,
		Hub:       hub,
		Metrics:   metrics,
		DB:        db,
		Version:   version,
	}
	// Interface fields stay nil when a backend is disabled.
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	if influxClient != nil {
		deps.InfluxDB = influxClient
	}

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server (stop accepting requests)
	// 2. WebSocket hub
	// 3. Event queues (drain)
	// 4. InfluxDB, MQTT
	// 5. Database

	return nil
}

// connectMQTT connects to the broker when MQTT is enabled. It returns a nil
// client when disabled.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}

	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)

	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	return client, nil
}

// connectInfluxDB connects to InfluxDB when enabled. It returns a nil client
// when disabled.
func connectInfluxDB(ctx context.Context, cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	return client, nil
}
