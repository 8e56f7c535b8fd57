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
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/zoo-booking/internal/config"
	"github.com/iliyamo/zoo-booking/internal/database"
	"github.com/iliyamo/zoo-booking/internal/gateway"
	"github.com/iliyamo/zoo-booking/internal/handler"
	"github.com/iliyamo/zoo-booking/internal/middleware"
	"github.com/iliyamo/zoo-booking/internal/queue"
	"github.com/iliyamo/zoo-booking/internal/repository"
	"github.com/iliyamo/zoo-booking/internal/router"
	"github.com/iliyamo/zoo-booking/internal/service"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("could not read .env")
	}
	cfg := config.Load()
	config.ConfigureLogging(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("connect database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logrus.WithError(err).Fatal("migrate schema")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	catalog := repository.NewCatalogRepo(db)
	bookings := repository.NewBookingRepo(db)

	if cfg.AdminEmail != "" {
		created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			logrus.WithError(err).Fatal("bootstrap admin")
		}
		if created {
			logrus.WithField("email", cfg.AdminEmail).Info("admin account created")
		}
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	var events service.EventPublisher
	if cfg.RabbitMQURL != "" {
		events = queue.NewPublisher(cfg.RabbitMQURL)
	} else {
		logrus.Warn("RABBITMQ_URL not set; booking events disabled")
	}

	gw, err := newGateway(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("payment gateway")
	}

	bookingSvc := service.NewBookingService(bookings, catalog, events)
	paymentSvc := service.NewPaymentService(bookingSvc, gw, cfg.PaymentCurrency)

	e := router.New(router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		Catalog:  handler.NewCatalogHandler(catalog, bookingSvc),
		Bookings: handler.NewBookingHandler(bookingSvc),
		Payments: handler.NewPaymentHandler(paymentSvc),
		Admin: handler.NewAdminHandler(users, catalog, bookingSvc, func(ctx context.Context) error {
			return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix)
		}),
		DB: db,
	}, router.Options{
		JWTSecret:      cfg.JWTSecret,
		Redis:          rdb,
		Cache:          cacheCfg,
		RateLimit:      config.LoadRateLimitConfig(),
		WriteRateLimit: config.LoadWriteRateLimitConfig(),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "gateway": gw.Name()}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.RabbitMQURL != "" {
		consumer := &queue.Consumer{URL: cfg.RabbitMQURL, LogDir: cfg.LogDir}
		g.Go(func() error { return consumer.Run(ctx) })
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("server stopped with error")
		return
	}
	logrus.Info("server stopped")
}

// newGateway picks Stripe when a secret key is configured and the
// local mock otherwise.
func newGateway(cfg config.Config) (gateway.Gateway, error) {
	if cfg.StripeSecretKey == "" {
		if cfg.IsProd() {
			return nil, errors.New("STRIPE_SECRET_KEY is required in prod")
		}
		logrus.Warn("STRIPE_SECRET_KEY not set; using mock payment gateway")
		return gateway.NewMockGateway(cfg.StripeWebhookSecret), nil
	}
	return gateway.NewStripeGateway(&gateway.StripeGatewayConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	})
}
