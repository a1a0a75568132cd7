package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flatstay/api"
	"github.com/Domenick1991/flatstay/config"
	"github.com/Domenick1991/flatstay/internal/bootstrap"
	"github.com/Domenick1991/flatstay/internal/cache"
	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/Domenick1991/flatstay/internal/kafka"
	"github.com/Domenick1991/flatstay/internal/notify"
	"github.com/Domenick1991/flatstay/internal/provider"
	"github.com/Domenick1991/flatstay/internal/repository"
	"github.com/Domenick1991/flatstay/internal/service/booking"
	"github.com/Domenick1991/flatstay/internal/service/payment"
	"github.com/Domenick1991/flatstay/internal/service/units"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.UnitsCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	unitRepo := repository.NewUnitRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	fanout := notify.NewFanout(producer, cfg.Kafka.NotificationsTopic, userRepo, log)

	gateways := []provider.Gateway{
		provider.NewAlphaPay(providerConfig(cfg.Payments.AlphaPay)),
		provider.NewBetaPay(providerConfig(cfg.Payments.BetaPay)),
	}

	unitService := units.NewService(unitRepo, userRepo, redisCache)
	bookingService := booking.NewService(
		bookingRepo,
		unitRepo,
		redisCache,
		fanout,
		time.Duration(cfg.Booking.HoldTTLSeconds)*time.Second,
		log,
	)
	paymentService := payment.NewService(
		paymentRepo,
		bookingRepo,
		unitRepo,
		userRepo,
		gateways,
		domain.PaymentProvider(cfg.Payments.DefaultProvider),
		cfg.Payments.Currency,
		fanout,
		log,
	)

	unitHandler := api.NewUnitHandler(unitService)
	bookingHandler := api.NewBookingHandler(bookingService)
	paymentHandler := api.NewPaymentHandler(paymentService)

	if err := bootstrap.Run(ctx, cfg, unitHandler, bookingHandler, paymentHandler); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func providerConfig(cfg config.ProviderConfig) provider.Config {
	return provider.Config{
		BaseURL:       cfg.BaseURL,
		KeyID:         cfg.KeyID,
		KeySecret:     cfg.KeySecret,
		WebhookSecret: cfg.WebhookSecret,
		Timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}
