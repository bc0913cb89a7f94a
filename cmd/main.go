package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"cafe-pos/internal/auth"
	"cafe-pos/internal/checkout"
	"cafe-pos/internal/config"
	"cafe-pos/internal/database"
	"cafe-pos/internal/export"
	"cafe-pos/internal/httpapi"
	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/realtime"
	"cafe-pos/internal/services/inventory"
	"cafe-pos/internal/services/kitchen"
	"cafe-pos/internal/services/notification"
	"cafe-pos/internal/services/order"
	"cafe-pos/internal/services/storefront"
	"cafe-pos/internal/services/tracking"
	"cafe-pos/internal/session"
)

func main() {
	var (
		mode       = flag.String("mode", "", "Service mode (order-service, kitchen-service, tracking-service, notification-subscriber)")
		port       = flag.Int("port", 0, "HTTP port (defaults to HTTP_PORT)")
		configFile = flag.String("config", ".env", "Optional dotenv file")
		prefetch   = flag.Int("prefetch", 10, "RabbitMQ prefetch count")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":     *mode,
		"port":     cfg.HTTP.Port,
		"prefetch": *prefetch,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "order-service":
		err = runOrderService(ctx, cfg, log)
	case "kitchen-service":
		err = runKitchenService(ctx, cfg, log, *prefetch)
	case "tracking-service":
		err = runTrackingService(ctx, cfg, log, *prefetch)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, log, *prefetch)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}
	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// infra is what every database-backed mode opens at startup.
type infra struct {
	db        *database.DB
	conn      *messaging.Connection
	publisher *messaging.Publisher
}

func openInfra(ctx context.Context, cfg *config.Config, log *logger.Logger) (*infra, error) {
	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx, cfg.Shop.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize messaging: %w", err)
	}
	return &infra{db: db, conn: conn, publisher: messaging.NewPublisher(conn, log)}, nil
}

func (i *infra) Close() {
	_ = i.conn.Close()
	i.db.Close()
}

func (i *infra) brokerCheck(context.Context) error {
	if i.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

func newOrderService(cfg *config.Config, in *infra, log *logger.Logger) *order.Service {
	variant := lifecycle.VariantStandard
	if cfg.Shop.AutoConfirm {
		variant = lifecycle.VariantAutoConfirm
	}
	loc := cfg.Location()
	menu := storefront.NewMenuRepository(in.db.Pool)
	return order.NewService(order.NewRepository(in.db.Pool), menu, in.publisher, order.Config{
		RateLimitWindow: cfg.Shop.RateLimitWindow,
		Variant:         variant,
		RequireContact:  cfg.Shop.RequireContact,
		Location:        loc,
		Receipt: export.ReceiptOptions{
			ShopName:       cfg.Shop.Name,
			CurrencySymbol: cfg.Shop.CurrencySymbol,
			Location:       loc,
		},
	}, log)
}

// runOrderService serves the storefront, orders manager, back office and
// staff login.
func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if err := cfg.RequireAuth(); err != nil {
		return err
	}
	in, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.Close()

	users := auth.NewPostgresUsers(in.db.Pool)
	if err := seedStaff(ctx, cfg, users, log); err != nil {
		return err
	}
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	orders := newOrderService(cfg, in, log)
	menu := storefront.NewMenuRepository(in.db.Pool)
	sessions := session.NewManager(session.NewPostgresStore(in.db.Pool), log)

	variant := checkout.ContactOptional
	if cfg.Shop.RequireContact {
		variant = checkout.ContactRequired
	}
	co := checkout.NewService(orders, sessions, variant, log)

	r := httpapi.NewRouter(log)
	r.Get("/health", httpapi.HealthHandler("order-service", in.db.Ping, in.brokerCheck))
	auth.NewHandler(users, tokens, log).RegisterRoutes(r)
	storefront.NewHandler(menu, sessions, co, cfg.Shop.CurrencySymbol, log).RegisterRoutes(r)
	order.NewHandler(orders, tokens, log).RegisterRoutes(r)
	inventory.NewHandler(inventory.NewService(inventory.NewRepository(in.db.Pool), menu, log), tokens, log).RegisterRoutes(r)

	return runAll(ctx,
		func(ctx context.Context) error { sessions.RunSweeper(ctx, cfg.Shop.SessionIdleTTL); return nil },
		func(ctx context.Context) error { return httpapi.Serve(ctx, httpapi.NewServer(cfg.HTTP.Port, r), log) },
	)
}

func seedStaff(ctx context.Context, cfg *config.Config, users *auth.PostgresUsers, log *logger.Logger) error {
	if cfg.Auth.SeedUsername == "" || cfg.Auth.SeedPassword == "" {
		return nil
	}
	role, ok := lifecycle.ParseActor(cfg.Auth.SeedRole)
	if !ok || role == lifecycle.Customer {
		return fmt.Errorf("invalid staff seed role %q", cfg.Auth.SeedRole)
	}
	if err := users.Upsert(ctx, cfg.Auth.SeedUsername, cfg.Auth.SeedPassword, role); err != nil {
		return err
	}
	log.Info("staff_seeded", "Staff account ready", "startup", map[string]interface{}{
		"username": cfg.Auth.SeedUsername,
		"role":     string(role),
	})
	return nil
}

// runKitchenService serves the kitchen display and refreshes it from the broker.
func runKitchenService(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	if err := cfg.RequireAuth(); err != nil {
		return err
	}
	in, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.Close()

	hub := realtime.NewHub(log, cfg.HTTP.AllowedOrigins...)
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	orders := newOrderService(cfg, in, log)

	r := httpapi.NewRouter(log)
	r.Get("/health", httpapi.HealthHandler("kitchen-service", in.db.Ping, in.brokerCheck))
	kitchen.NewHandler(orders, hub, hub.ServeWS, tokens, log).RegisterRoutes(r)

	worker := kitchen.NewWorker(hub, log)
	newOrders := messaging.NewBroadcastConsumer(in.conn, log, messaging.KitchenOrdersQueue,
		messaging.OrdersExchange, messaging.KitchenOrdersRoutingKey, prefetch)
	statuses := messaging.NewBroadcastConsumer(in.conn, log, messaging.KitchenStatusQueue,
		messaging.NotificationsExchange, "", prefetch)

	return runAll(ctx,
		func(ctx context.Context) error { hub.Run(ctx); return nil },
		func(ctx context.Context) error { return worker.Run(ctx, newOrders, statuses) },
		func(ctx context.Context) error { return httpapi.Serve(ctx, httpapi.NewServer(cfg.HTTP.Port, r), log) },
	)
}

// runTrackingService serves the status board and refreshes it from the broker.
func runTrackingService(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	in, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.Close()

	hub := realtime.NewHub(log, cfg.HTTP.AllowedOrigins...)
	svc := tracking.NewService(newOrderService(cfg, in, log), hub, log)

	r := httpapi.NewRouter(log)
	r.Get("/health", httpapi.HealthHandler("tracking-service", in.db.Ping, in.brokerCheck))
	tracking.NewHandler(svc, hub.ServeWS, log).RegisterRoutes(r)

	consumer := messaging.NewBroadcastConsumer(in.conn, log, messaging.TrackingQueue,
		messaging.NotificationsExchange, "", prefetch)
	return runAll(ctx,
		func(ctx context.Context) error { hub.Run(ctx); return nil },
		func(ctx context.Context) error {
			if err := consumer.Run(ctx, svc.HandleStatus); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
		func(ctx context.Context) error { return httpapi.Serve(ctx, httpapi.NewServer(cfg.HTTP.Port, r), log) },
	)
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	consumer := messaging.NewConsumer(conn, log, messaging.NotificationsQueue, "notifier", prefetch)
	return notification.NewSubscriber(consumer, os.Stdout, log).Start(ctx)
}

// runAll runs fns until ctx is cancelled or one of them fails; a failure
// stops the others. The first error is returned.
func runAll(ctx context.Context, fns ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	for _, fn := range fns {
		wg.Add(1)
		go func(fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				once.Do(func() { first = err })
				cancel()
			}
		}(fn)
	}
	wg.Wait()
	return first
}
