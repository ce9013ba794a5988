package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appcart "github.com/Zhima-Mochi/minishop-checkout/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/minishop-checkout/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/checkout"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/config"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/uow"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/gateway"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/kafkarelay"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	obsprovider "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/rediscache"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	if err := run(cfg, baseLogger, systemLogger); err != nil {
		systemLogger.Error("service_failed", zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, baseLogger, systemLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var spanOut io.Writer
	if cfg.OTelStdout {
		spanOut = os.Stdout
	}
	tp, err := oteltrace.Setup(cfg.ServiceName, spanOut)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	counters, histograms := prometrics.Instruments(prometrics.New("", "", reg))
	logger := zaplogger.New(baseLogger)
	tel := obsprovider.New(oteltrace.New(cfg.ServiceName), logger, counters, histograms)

	store, ready, closeStore, err := openStore(ctx, cfg, systemLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	cache, closeCache, err := openCache(ctx, cfg, systemLogger)
	if err != nil {
		return err
	}
	defer closeCache()

	var gw dompayment.Gateway
	if !cfg.Payment.DemoMode {
		client, err := gateway.New(gateway.Config{
			BaseURL:   cfg.Payment.GatewayURL,
			KeyID:     cfg.Payment.KeyID,
			KeySecret: cfg.Payment.KeySecret,
			Timeout:   cfg.Payment.Timeout,
		}, tel)
		if err != nil {
			return err
		}
		gw = client
	}

	bus := outbox.NewBus(logger, outbox.WithHandlerTimeout(cfg.Shutdown.Timeout))
	eventNames := append(domorder.EventNames(), inventory.StockReservedEvent{}.EventName())
	if len(cfg.Kafka.Brokers) > 0 {
		relay := kafkarelay.New(kafkarelay.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), cfg.Kafka.Topic, tel)
		relay.Subscribe(bus, workerpresentation.Instrument(tel, "kafka_relay"), eventNames...)
		defer func() { _ = relay.Close() }()
		systemLogger.Info("kafka_relay_enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	} else {
		audit := workerpresentation.Instrument(tel, "event_log")(eventLog(logger))
		for _, name := range eventNames {
			bus.Subscribe(name, audit)
		}
	}
	bus.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		if err := bus.Stop(stopCtx); err != nil {
			systemLogger.Warn("event_bus_stop_error", zap.Error(err))
		}
	}()

	ids := id.NewUUIDGenerator()
	catalogService := appcatalog.NewService(store, cache, ids, tel)
	services := httppresentation.Services{
		Checkout: checkout.NewUseCase(store, cache, ids, bus, tel),
		Payments: apppayment.NewService(store, gw, ids, bus, apppayment.Config{
			DemoMode: cfg.Payment.DemoMode,
			Currency: cfg.Payment.Currency,
		}, tel),
		Orders:  apporder.NewService(store, bus, tel),
		Carts:   appcart.NewService(store, tel),
		Catalog: catalogService,
	}

	if cfg.Demo.Seed {
		if err := seedCatalog(ctx, catalogService); err != nil {
			return err
		}
	}

	handler := httppresentation.NewHandler(services, httppresentation.Options{
		DemoBuyerID: cfg.Demo.BuyerID,
		Ready:       ready,
	}, logger, tel)
	router := handler.Router()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("payment_demo_mode", cfg.Payment.DemoMode),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (uow.Store, func(context.Context) error, func(), error) {
	if cfg.Store.Driver != config.StorePostgres {
		log.Info("store_ready", zap.String("driver", config.StoreMemory))
		return memory.NewStore(), nil, func() {}, nil
	}

	pg, err := postgres.Open(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := pg.Migrate(); err != nil {
		pg.Close()
		return nil, nil, nil, err
	}
	log.Info("store_ready", zap.String("driver", config.StorePostgres))
	return pg, pg.Ping, pg.Close, nil
}

func openCache(ctx context.Context, cfg config.Config, log *zap.Logger) (catalog.ListCache, func(), error) {
	if cfg.Redis.Addr == "" {
		return memory.NewProductListCache(cfg.Redis.ProductCacheTTL), func() {}, nil
	}

	client := rediscache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis: ping %s: %w", cfg.Redis.Addr, err)
	}
	log.Info("product_cache_ready", zap.String("redis_addr", cfg.Redis.Addr))
	return rediscache.NewProductListCache(client, cfg.Redis.ProductCacheTTL), func() { _ = client.Close() }, nil
}

func eventLog(logger observability.Logger) domoutbox.Handler {
	return func(ctx context.Context, e domoutbox.Event) error {
		logctx.FromOr(ctx, logger).Info("domain_event", observability.F("event", e.EventName()))
		return nil
	}
}

var demoProducts = []catalog.Draft{
	{Name: "Wireless Mouse", Description: "2.4GHz ergonomic mouse", SKU: "DEMO-MOUSE", BasePrice: decimal.RequireFromString("799.00"), StockQty: 50},
	{Name: "Mechanical Keyboard", Description: "Tenkeyless, brown switches", SKU: "DEMO-KEYBOARD", BasePrice: decimal.RequireFromString("3499.00"), StockQty: 20},
	{Name: "USB-C Hub", Description: "7-in-1 adapter", SKU: "DEMO-HUB", BasePrice: decimal.RequireFromString("1299.50"), StockQty: 5},
}

// seedCatalog inserts the demo products into an empty catalog.
func seedCatalog(ctx context.Context, svc *appcatalog.Service) error {
	existing, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("seed: list products: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, d := range demoProducts {
		if _, err := svc.Create(ctx, d); err != nil {
			return fmt.Errorf("seed: create %s: %w", d.SKU, err)
		}
	}
	return nil
}
