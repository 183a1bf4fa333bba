package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/bootstrap"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/inventory"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/Domenick1991/flightbooking/internal/payment"
	"github.com/Domenick1991/flightbooking/internal/pnr"
	"github.com/Domenick1991/flightbooking/internal/pricing"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer redisClient.Close()
	}

	var locker inventory.Locker = inventory.NewMemoryLocker()
	if cfg.Booking.LockBackend == config.LockBackendRedis {
		if redisClient == nil {
			lg.Fatal("redis lock backend needs redis.addr")
		}
		locker = inventory.NewRedisLocker(redisClient, cfg.Booking.LockTTL, lg)
	}
	inv := inventory.New(store, locker,
		inventory.WithLockTimeout(cfg.Booking.LockTimeout),
		inventory.WithLogger(lg.Named("inventory")),
	)

	demand, err := pricing.NewDemandSource(cfg.Pricing.DemandModel)
	if err != nil {
		lg.Fatal("demand model", zap.Error(err))
	}
	engine := pricing.NewEngine(demand)

	payments := payment.NewSimulator(
		payment.WithSuccessRate(cfg.Booking.PaymentSuccessRate),
		payment.WithLatency(cfg.Booking.PaymentLatency),
	)
	pnrs := pnr.NewGenerator(
		pnr.WithLength(cfg.Booking.PNRLength),
		pnr.WithMaxAttempts(cfg.Booking.PNRMaxAttempts),
	)

	bookingOpts := []booking.BookingServiceOption{
		booking.WithCancellationCutoff(cfg.Booking.CancellationCutoff),
		booking.WithLogger(lg.Named("booking")),
	}
	var flightCache flights.FlightCache
	if redisClient != nil {
		redisCache := cache.NewRedisCache(redisClient, cfg.FlightsCacheTTL)
		flightCache = redisCache
		bookingOpts = append(bookingOpts, booking.WithFlightsCache(redisCache))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, lg.Named("kafka"))
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			lg.Warn("kafka unavailable, events will be retried per publish", zap.Error(err))
		}
		bookingOpts = append(bookingOpts,
			booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic),
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}

	flightService := flights.NewFlightService(store, flightCache, engine, flights.WithLogger(lg.Named("flights")))
	bookingService := booking.NewBookingService(store, inv, engine, payments, pnrs, bookingOpts...)

	if err := bootstrap.Run(ctx, cfg, lg, flightService, bookingService); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, lg *zap.Logger) (repository.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		seed := repository.SampleFlights(cfg.Database.SeedFlights, time.Now())
		lg.Info("using in-memory store", zap.Int("flights", len(seed)))
		return repository.NewMemoryStore(seed...), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, err
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if cfg.Database.SeedFlights > 0 {
		n, err := repository.SeedFlights(ctx, pool, repository.SampleFlights(cfg.Database.SeedFlights, time.Now()))
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		lg.Info("seeded flights", zap.Int("flights", n))
	}
	return repository.NewPGStore(pool), pool.Close, nil
}
