package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/email"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if len(cfg.Kafka.Brokers) == 0 {
		lg.Fatal("worker needs kafka.brokers")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifications := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, lg)
	defer notifications.Close()
	bookingEvents := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-cache", cfg.Kafka.BookingEventsTopic, lg)
	defer bookingEvents.Close()

	var flightCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		flightCache = cache.NewRedisCache(client, cfg.FlightsCacheTTL)
	}

	emailSender := email.NewSender(lg.Named("email"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifications.Consume(ctx, emailSender.Send)
	})
	g.Go(func() error {
		return bookingEvents.Consume(ctx, func(ctx context.Context, event kafka.BookingEvent) error {
			lg.Info("booking event",
				zap.String("type", event.Type),
				zap.String("pnr", event.PNR),
				zap.Int64("flight_id", event.FlightID))
			if flightCache == nil {
				return nil
			}
			if err := flightCache.InvalidateFlights(ctx); err != nil {
				lg.Warn("invalidate flights cache", zap.Error(err))
			}
			return nil
		})
	})

	lg.Info("worker started",
		zap.String("notifications_topic", cfg.Kafka.NotificationsTopic),
		zap.String("booking_events_topic", cfg.Kafka.BookingEventsTopic))
	if err := g.Wait(); err != nil {
		lg.Error("worker stopped", zap.Error(err))
		return
	}
	lg.Info("worker stopped")
}
