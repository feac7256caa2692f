package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ogmarket/checkout/internal/es"
	"github.com/ogmarket/checkout/internal/gateway"
	"github.com/ogmarket/checkout/internal/httpserver"
	"github.com/ogmarket/checkout/internal/models"
	"github.com/ogmarket/checkout/internal/notify"
	"github.com/ogmarket/checkout/internal/repo"
	"github.com/ogmarket/checkout/internal/service"
	"github.com/ogmarket/checkout/pkg/config"
	"github.com/ogmarket/checkout/pkg/db"
	"github.com/ogmarket/checkout/pkg/logging"
	loggingmw "github.com/ogmarket/checkout/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmpty(cfg.GatewaySecretKey, "PAYSTACK_SECRET_KEY")
	config.MustNonEmpty(cfg.GatewayCallbackURL, "PAYSTACK_CALLBACK_URL")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	ctx := context.Background()
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.Product{}, &models.CartItem{}, &models.Order{}, &models.OrderItem{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var notifier notify.Enqueuer
	var dispatcher *notify.Dispatcher
	if len(cfg.KafkaBrokers) > 0 {
		dispatcher = notify.New(cfg.KafkaBrokers, cfg.NotificationTopic, logger)
		notifier = dispatcher
	} else {
		logger.Warn("KAFKA_BROKERS not set, notifications disabled")
		notifier = notify.Discard{Log: logger}
	}

	r := &repo.GormRepo{DB: gdb}
	pay := gateway.NewPaystack(gateway.Config{
		BaseURL:     cfg.GatewayBaseURL,
		SecretKey:   cfg.GatewaySecretKey,
		CallbackURL: cfg.GatewayCallbackURL,
		Timeout:     cfg.GatewayTimeout,
	})

	catalog := &service.CatalogService{Repo: r, Index: cfg.ESIndex, Notifier: notifier}
	if cfg.ESURL != "" {
		esClient, err := es.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		catalog.ES = esClient
	} else {
		logger.Warn("ES_URL not set, product search disabled")
	}

	deps := httpserver.Deps{
		CheckoutHandler: &httpserver.CheckoutHTTP{
			Svc: &service.CheckoutService{DB: gdb, Repo: r, Gateway: pay, Notifier: notifier},
		},
		WebhookHandler: &httpserver.WebhookHTTP{
			Svc: &service.SettlementService{DB: gdb, Repo: r, Notifier: notifier},
		},
		OrderHandler: &httpserver.OrderHTTP{
			Svc: &service.OrderService{DB: gdb, Repo: r, Notifier: notifier},
		},
		CartHandler:    &httpserver.CartHTTP{Svc: &service.CartService{Repo: r}},
		ProductHandler: &httpserver.ProductHTTP{Svc: catalog},
		JWTSecret:      cfg.JWTAccessSecret,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if dispatcher != nil {
		if err := dispatcher.Close(); err != nil {
			logger.Error("notification dispatcher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
