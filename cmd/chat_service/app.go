package chatservice

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
	"delivery-hub/internal/software/chat/handler"
	"delivery-hub/internal/software/chat/service"

	"golang.org/x/sync/errgroup"
)

const serviceName = "chat-service"

// Run wires the chat service and its change feed, and blocks until ctx is
// cancelled or either of them fails.
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
	svc := service.NewChatService(log,
		postgres.NewUnitOfWork(pool),
		postgres.NewChatMessageRepo(pool),
		postgres.NewOrderRepo(pool),
		broker,
		service.Config{SendTimeout: cfg.Chat.SendTimeout},
	)
	// with a shared broker one node republishes inserts for everyone
	feed := postgres.NewChatChangeFeed(pool, broker, log, postgres.FeedOptions{Exclusive: bus.Shared(cfg)})

	mux := http.NewServeMux()
	handler.NewChatHandler(svc, log, jwtManager).RegisterRoutes(mux)

	srv := httpx.NewServer(ctx, cfg.Services.ChatServicePort, httpx.WithConcurrencyLimit(maxConcurrent, mux))

	log.Info(ctx, "service_started",
		fmt.Sprintf("Chat Service started on port %d", cfg.Services.ChatServicePort),
		map[string]any{
			"port":           cfg.Services.ChatServicePort,
			"max_concurrent": maxConcurrent,
			"broker":         cfg.Broker.Driver,
		},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return feed.Run(gctx) })
	g.Go(func() error { return httpx.Serve(gctx, srv, log) })
	return g.Wait()
}
