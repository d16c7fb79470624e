package trackingservice

import (
	"context"
	"fmt"
	"net/http"

	"delivery-hub/internal/general/bus"
	"delivery-hub/internal/general/config"
	"delivery-hub/internal/general/httpx"
	"delivery-hub/internal/general/jwt"
	"delivery-hub/internal/general/logger"
	"delivery-hub/internal/general/postgres"
	"delivery-hub/internal/ports"
	"delivery-hub/internal/software/tracking/handler"
	"delivery-hub/internal/software/tracking/service"

	"golang.org/x/sync/errgroup"
)

const serviceName = "tracking-service"

// Run wires the tracking service and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	log := logger.New(serviceName)
	ctx = log.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	broker, err := bus.Open(ctx, cfg, serviceName, log)
	if err != nil {
		log.Error(ctx, "broker_connection_failed", "Failed to connect to the broker", err,
			map[string]any{"driver": cfg.Broker.Driver})
		return err
	}
	defer broker.Close()

	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 0)
	orders := postgres.NewOrderRepo(pool)
	subscriber := service.NewSubscriber(broker, log, service.WithStaleFilter())

	mux := http.NewServeMux()
	handler.NewTrackingHandler(log, jwtManager, orders, broker, subscriber, handler.Options{
		PublishInterval: cfg.Tracking.PublishInterval,
		Watch: ports.WatchOptions{
			HighAccuracy: cfg.Tracking.HighAccuracyEnabled(),
			MaximumAge:   cfg.Tracking.SensorMaxAge,
			Timeout:      cfg.Tracking.SensorTimeout,
		},
		AverageSpeedKMH: cfg.Tracking.AverageSpeedKMH,
	}).RegisterRoutes(mux)

	srv := httpx.NewServer(ctx, cfg.Services.TrackingServicePort, httpx.WithConcurrencyLimit(maxConcurrent, mux))

	log.Info(ctx, "service_started",
		fmt.Sprintf("Tracking Service started on port %d", cfg.Services.TrackingServicePort),
		map[string]any{
			"port":           cfg.Services.TrackingServicePort,
			"max_concurrent": maxConcurrent,
			"broker":         cfg.Broker.Driver,
		},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpx.Serve(gctx, srv, log) })
	return g.Wait()
}
