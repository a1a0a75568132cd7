package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flatstay/config"
	"github.com/Domenick1991/flatstay/internal/kafka"
	"github.com/Domenick1991/flatstay/internal/notify"
	"github.com/Domenick1991/flatstay/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	kafkaGo "github.com/segmentio/kafka-go"
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

	notificationRepo := repository.NewNotificationRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	sink := notify.NewSink(notificationRepo, log)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.NotificationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.WithError(err).Warn("decode notification event")
				return nil
			}
			return sink.Handle(ctx, event)
		}); err != nil {
			log.WithError(err).Info("consumer stopped")
		}
	}()

	sweepEvery := time.Duration(cfg.Worker.PaymentSweepMinutes) * time.Minute
	if sweepEvery <= 0 {
		sweepEvery = 5 * time.Minute
	}
	sweepTicker := time.NewTicker(sweepEvery)
	defer sweepTicker.Stop()

	pendingTTL := time.Duration(cfg.Payments.PendingTTLMinutes) * time.Minute
	if pendingTTL <= 0 {
		pendingTTL = 30 * time.Minute
	}

	for {
		select {
		case <-sweepTicker.C:
			deadline := time.Now().Add(-pendingTTL)
			expired, err := paymentRepo.ExpirePendingBefore(ctx, deadline)
			if err != nil {
				log.WithError(err).Error("expire pending payments")
				continue
			}
			if len(expired) > 0 {
				log.WithField("count", len(expired)).Info("expired stale pending payments")
			}
		case <-ctx.Done():
			log.Info("shutting down")
			return
		}
	}
}
