package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mkotelnikov/storefront/internal/cache"
	"github.com/mkotelnikov/storefront/internal/cart"
	"github.com/mkotelnikov/storefront/internal/catalog"
	"github.com/mkotelnikov/storefront/internal/config"
	"github.com/mkotelnikov/storefront/internal/db"
	"github.com/mkotelnikov/storefront/internal/httpserver"
	"github.com/mkotelnikov/storefront/internal/inventory"
	"github.com/mkotelnikov/storefront/internal/kafka"
	"github.com/mkotelnikov/storefront/internal/logging"
	"github.com/mkotelnikov/storefront/internal/notify"
	"github.com/mkotelnikov/storefront/internal/orders"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var producer kafka.Publisher
	var kafkaProducer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaProducer = kafka.NewProducer(cfg.KafkaBrokers)
		producer = kafkaProducer
	} else {
		logger.Warn("kafka brokers not configured, events will not be published")
	}

	statusCache := cache.NewStatusCache(cfg.RedisAddr)
	if statusCache == nil {
		logger.Warn("redis not configured, order status cache disabled")
	}

	registry := notify.NewRegistry(cfg.NotifySendTimeout, cfg.NotifyIdleTimeout, logger)

	pricing := cart.PricingConfig{
		TaxRate:                    cfg.TaxRate,
		FreeShippingThresholdCents: cfg.FreeShippingThresholdCents,
		ShippingFeeCents:           cfg.ShippingFeeCents,
	}

	catalogSvc := &catalog.Service{Repo: &catalog.GormRepo{DB: database}}
	inventorySvc := &inventory.Service{
		Repo:     &inventory.GormRepo{DB: database},
		Products: catalogSvc,
		Events:   registry,
		Producer: producer,
	}
	cartSvc := &cart.Service{
		Repo:      &cart.GormRepo{DB: database},
		Inventory: inventorySvc,
		Products:  catalogSvc,
		Pricing:   pricing,
	}
	orderSvc := &orders.Service{
		Repo:         &orders.GormRepo{DB: database},
		Cart:         cartSvc,
		Inventory:    inventorySvc,
		Products:     catalogSvc,
		Pricing:      pricing,
		StatusCache:  statusCache,
		Producer:     producer,
		Events:       registry,
		AttentionAge: cfg.AttentionAge,
	}

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	// No write timeout: /api/v1/events holds its connection open.
	e.Server.WriteTimeout = 0

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(httpserver.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Catalog:   &httpserver.CatalogHTTP{Svc: catalogSvc},
		Inventory: &httpserver.InventoryHTTP{Svc: inventorySvc},
		Cart:      &httpserver.CartHTTP{Svc: cartSvc, JWTSecret: cfg.JWTSecret},
		Orders:    &httpserver.OrderHTTP{Svc: orderSvc},
		Events:    &httpserver.EventsHTTP{Registry: registry},
		JWTSecret: cfg.JWTSecret,
	})

	go func() {
		addr := ":" + strconv.Itoa(cfg.ServerPort)
		logger.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}

	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("kafka close", "error", err)
		}
	}
	if err := statusCache.Close(); err != nil {
		logger.Error("redis close", "error", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("server stopped")
}
