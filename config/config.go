package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env             string         `yaml:"env" env:"APP_ENV"`
	HTTP            HTTPConfig     `yaml:"http"`
	Database        DatabaseConfig `yaml:"database"`
	Redis           RedisConfig    `yaml:"redis"`
	Kafka           KafkaConfig    `yaml:"kafka"`
	Booking         BookingConfig  `yaml:"booking"`
	Pricing         PricingConfig  `yaml:"pricing"`
	FlightsCacheTTL time.Duration  `yaml:"flights_cache_ttl" env:"FLIGHTS_CACHE_TTL"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" env:"HTTP_ADDRESS"`
	SwaggerDir string `yaml:"swagger_dir" env:"HTTP_SWAGGER_DIR"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	// SeedFlights is the number of sample flights generated at startup. Postgres
	// is only seeded while its flights table is empty.
	SeedFlights int `yaml:"seed_flights" env:"DB_SEED_FLIGHTS"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	BookingEventsTopic string   `yaml:"booking_events_topic" env:"KAFKA_BOOKING_EVENTS_TOPIC"`
	NotificationsTopic string   `yaml:"notifications_topic" env:"KAFKA_NOTIFICATIONS_TOPIC"`
	GroupID            string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
}

type BookingConfig struct {
	LockBackend        string        `yaml:"lock_backend" env:"BOOKING_LOCK_BACKEND"`
	LockTimeout        time.Duration `yaml:"lock_timeout" env:"BOOKING_LOCK_TIMEOUT"`
	LockTTL            time.Duration `yaml:"lock_ttl" env:"BOOKING_LOCK_TTL"`
	// PNRLength must fit the bookings.pnr column, see MinPNRLength and
	// MaxPNRLength.
	PNRLength          int           `yaml:"pnr_length" env:"BOOKING_PNR_LENGTH"`
	PNRMaxAttempts     int           `yaml:"pnr_max_attempts" env:"BOOKING_PNR_MAX_ATTEMPTS"`
	PaymentSuccessRate float64       `yaml:"payment_success_rate" env:"BOOKING_PAYMENT_SUCCESS_RATE"`
	PaymentLatency     time.Duration `yaml:"payment_latency" env:"BOOKING_PAYMENT_LATENCY"`
	// CancellationCutoff closes cancellation this long before departure.
	// A negative value disables the cutoff.
	CancellationCutoff time.Duration `yaml:"cancellation_cutoff" env:"BOOKING_CANCELLATION_CUTOFF"`
}

type PricingConfig struct {
	DemandModel string `yaml:"demand_model" env:"PRICING_DEMAND_MODEL"`
}

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	MinPNRLength = 4
	MaxPNRLength = 12
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read env overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse decodes data over the defaults, so a key that is present always wins,
// zero values included.
func parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Env: "local",
		HTTP: HTTPConfig{
			Address: ":8080",
		},
		Database: DatabaseConfig{
			Driver: DriverPostgres,
		},
		Booking: BookingConfig{
			LockBackend:        LockBackendMemory,
			LockTimeout:        3 * time.Second,
			LockTTL:            30 * time.Second,
			PNRLength:          6,
			PNRMaxAttempts:     10,
			PaymentSuccessRate: 0.9,
			CancellationCutoff: 2 * time.Hour,
		},
		Pricing: PricingConfig{
			DemandModel: "uniform",
		},
		FlightsCacheTTL: 30 * time.Second,
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Booking.LockBackend {
	case LockBackendMemory, LockBackendRedis:
	default:
		return fmt.Errorf("unknown lock backend %q", c.Booking.LockBackend)
	}
	if c.Booking.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive, got %s", c.Booking.LockTimeout)
	}
	if c.Booking.PNRLength < MinPNRLength || c.Booking.PNRLength > MaxPNRLength {
		return fmt.Errorf("pnr_length must be within [%d, %d], got %d", MinPNRLength, MaxPNRLength, c.Booking.PNRLength)
	}
	if c.Booking.PNRMaxAttempts <= 0 {
		return fmt.Errorf("pnr_max_attempts must be positive, got %d", c.Booking.PNRMaxAttempts)
	}
	if c.Booking.PaymentSuccessRate < 0 || c.Booking.PaymentSuccessRate > 1 {
		return fmt.Errorf("payment_success_rate must be within [0, 1], got %v", c.Booking.PaymentSuccessRate)
	}
	if c.Booking.LockTTL < c.Booking.LockTimeout {
		return fmt.Errorf("lock_ttl (%s) must not be shorter than lock_timeout (%s)", c.Booking.LockTTL, c.Booking.LockTimeout)
	}
	return nil
}
