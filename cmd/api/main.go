package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/blendery/blendery-backend/api/routes"
	"github.com/blendery/blendery-backend/internal/cart"
	checkoutsvc "github.com/blendery/blendery-backend/internal/checkout"
	"github.com/blendery/blendery-backend/internal/discounts"
	"github.com/blendery/blendery-backend/internal/orders"
	"github.com/blendery/blendery-backend/internal/payments"
	"github.com/blendery/blendery-backend/internal/products"
	stripewebhook "github.com/blendery/blendery-backend/internal/webhooks/stripe"
	"github.com/blendery/blendery-backend/pkg/config"
	"github.com/blendery/blendery-backend/pkg/db"
	"github.com/blendery/blendery-backend/pkg/logger"
	"github.com/blendery/blendery-backend/pkg/metrics"
	"github.com/blendery/blendery-backend/pkg/migrate"
	"github.com/blendery/blendery-backend/pkg/redis"
	"github.com/blendery/blendery-backend/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefrontMetrics(registry)

	productRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())

	productService, err := products.NewService(productRepo)
	exitOnErr(logg, "failed to create products service", err)

	cartService, err := cart.NewService(dbClient, cartRepo, productRepo)
	exitOnErr(logg, "failed to create cart service", err)

	discountValidator, err := discounts.NewValidator(dbClient.DB())
	exitOnErr(logg, "failed to create discount validator", err)

	checkoutService, err := checkoutsvc.NewService(
		dbClient, cartRepo, productRepo, orderRepo, discountValidator, cfg.Checkout, storefrontMetrics,
	)
	exitOnErr(logg, "failed to create checkout service", err)

	txBounds := db.TxBounds{LockWait: cfg.Checkout.LockWait, Timeout: cfg.Checkout.TxTimeout}
	ordersService, err := orders.NewService(dbClient, orderRepo, productRepo, txBounds)
	exitOnErr(logg, "failed to create orders service", err)

	gateway := payments.NewStripeGateway(stripeClient)

	paymentsService, err := payments.NewService(dbClient, ordersService, orderRepo, gateway, storefrontMetrics)
	exitOnErr(logg, "failed to create payments service", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Events:            stripewebhook.NewEventRepository(dbClient.DB()),
		Orders:            orderRepo,
		Products:          productRepo,
		TransactionRunner: dbClient,
		Metrics:           storefrontMetrics,
	})
	exitOnErr(logg, "failed to create webhook service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient, registry,
			productService, cartService, checkoutService, ordersService, paymentsService,
			stripeClient, webhookService,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

func exitOnErr(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
