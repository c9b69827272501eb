package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/fieldpos-backend/api/controllers"
	"github.com/angelmondragon/fieldpos-backend/api/routes"
	"github.com/angelmondragon/fieldpos-backend/internal/checkout"
	"github.com/angelmondragon/fieldpos-backend/internal/discounts"
	"github.com/angelmondragon/fieldpos-backend/internal/invoices"
	"github.com/angelmondragon/fieldpos-backend/internal/notifications"
	"github.com/angelmondragon/fieldpos-backend/internal/orders"
	"github.com/angelmondragon/fieldpos-backend/internal/payments"
	"github.com/angelmondragon/fieldpos-backend/internal/references"
	"github.com/angelmondragon/fieldpos-backend/pkg/config"
	"github.com/angelmondragon/fieldpos-backend/pkg/db"
	"github.com/angelmondragon/fieldpos-backend/pkg/erp"
	"github.com/angelmondragon/fieldpos-backend/pkg/instance"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
	"github.com/angelmondragon/fieldpos-backend/pkg/metrics"
	"github.com/angelmondragon/fieldpos-backend/pkg/migrate"
	"github.com/angelmondragon/fieldpos-backend/pkg/pubsub"
	"github.com/angelmondragon/fieldpos-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	erpMetrics := metrics.NewERPMetrics(prometheus.DefaultRegisterer)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	erpClient, err := erp.NewClient(erp.ClientParams{
		Config:  cfg.ERP,
		Logger:  logg,
		Metrics: erpMetrics,
	})
	requireResource(ctx, logg, "erp client", err)
	gateway := erp.NewGateway(erpClient)

	resolver, err := references.NewResolver(references.ResolverParams{
		Gateway:   gateway,
		Selectors: references.SelectorsFromConfig(cfg.Journals),
		Logger:    logg,
	})
	requireResource(ctx, logg, "reference resolver", err)

	orderService, err := orders.NewService(gateway, logg)
	requireResource(ctx, logg, "order service", err)

	invoiceService, err := invoices.NewService(gateway, resolver, logg)
	requireResource(ctx, logg, "invoice service", err)

	paymentService, err := payments.NewService(payments.ServiceParams{
		Gateway:   gateway,
		Resolver:  resolver,
		Logger:    logg,
		CompanyID: cfg.ERP.CompanyID,
	})
	requireResource(ctx, logg, "payment service", err)

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	sinks := notifications.Fanout{notifications.NewLogSink(logg)}
	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		pubsubSink, err := notifications.NewPubSubSink(psClient.NotificationPublisher(), logg)
		requireResource(ctx, logg, "pubsub notification sink", err)
		sinks = append(sinks, pubsubSink)
		readiness["pubsub"] = psClient
	}

	runRepo := checkout.NewRepository(dbClient.DB())

	coordinator, err := checkout.NewCoordinator(checkout.CoordinatorParams{
		Orders:     orderService,
		Invoices:   invoiceService,
		Payments:   paymentService,
		Journals:   resolver,
		Recorder:   runRepo,
		Notifier:   sinks,
		Metrics:    checkoutMetrics,
		Logger:     logg,
		RunTimeout: cfg.Checkout.RunTimeout,
		CompanyID:  cfg.ERP.CompanyID,
	})
	requireResource(ctx, logg, "checkout coordinator", err)

	scope := ""
	if cfg.ERP.CompanyID > 0 {
		scope = strconv.FormatInt(cfg.ERP.CompanyID, 10)
	}
	presetStore, err := discounts.NewRedisStore(redisClient, scope)
	requireResource(ctx, logg, "discount store", err)

	catalog, err := discounts.NewCatalog(discounts.CatalogParams{
		Store:   presetStore,
		Gateway: gateway,
		Model:   cfg.Discounts.RemoteModel,
		Logger:  logg,
	})
	requireResource(ctx, logg, "discount catalog", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			redisClient,
			promhttp.Handler(),
			coordinator,
			runRepo,
			orderService,
			catalog,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(context.WithoutCancel(ctx), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
