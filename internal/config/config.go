// Package config loads service settings: built-in defaults, then an optional YAML file named by
// CONFIG_FILE, then environment variables. Later layers win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid configuration")

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	ServiceName string `yaml:"service_name"`
	Env         string `yaml:"env"`
	HTTPAddr    string `yaml:"http_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`

	Store    Store    `yaml:"store"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Payment  Payment  `yaml:"payment"`
	Demo     Demo     `yaml:"demo"`
	Shutdown Shutdown `yaml:"shutdown"`

	OTelStdout bool `yaml:"otel_stdout"`
}

type Store struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
}

type Redis struct {
	Addr            string        `yaml:"addr"`
	Password        string        `yaml:"password"`
	DB              int           `yaml:"db"`
	ProductCacheTTL time.Duration `yaml:"product_cache_ttl"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Payment struct {
	DemoMode   bool          `yaml:"demo_mode"`
	GatewayURL string        `yaml:"gateway_url"`
	KeyID      string        `yaml:"key_id"`
	KeySecret  string        `yaml:"key_secret"`
	Currency   string        `yaml:"currency"`
	Timeout    time.Duration `yaml:"timeout"`
}

type Demo struct {
	BuyerID string `yaml:"buyer_id"`
	Seed    bool   `yaml:"seed"`
}

type Shutdown struct {
	Timeout time.Duration `yaml:"timeout"`
}

func Default() Config {
	return Config{
		ServiceName: "minishop-checkout",
		Env:         "dev",
		HTTPAddr:    ":8080",
		LogLevel:    "info",
		Store:       Store{Driver: StoreMemory},
		Redis:       Redis{ProductCacheTTL: 5 * time.Minute},
		Kafka:       Kafka{Topic: "checkout-events"},
		Payment: Payment{
			DemoMode:   true,
			GatewayURL: "https://api.razorpay.com",
			Currency:   "INR",
			Timeout:    10 * time.Second,
		},
		Demo:     Demo{BuyerID: "demo-buyer"},
		Shutdown: Shutdown{Timeout: 10 * time.Second},
	}
}

// Load builds the configuration from the process environment.
func Load() (Config, error) {
	return LoadWith(os.LookupEnv)
}

// LoadWith is Load with an injectable environment lookup.
func LoadWith(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("SERVICE_NAME", &c.ServiceName)
	e.str("ENV", &c.Env)
	e.str("HTTP_ADDR", &c.HTTPAddr)
	e.str("LOG_LEVEL", &c.LogLevel)
	e.str("LOG_FILE", &c.LogFile)

	e.str("STORE_DRIVER", &c.Store.Driver)
	e.str("DATABASE_URL", &c.Store.DatabaseURL)

	e.str("REDIS_ADDR", &c.Redis.Addr)
	e.str("REDIS_PASSWORD", &c.Redis.Password)
	e.int("REDIS_DB", &c.Redis.DB)
	e.duration("PRODUCT_CACHE_TTL", &c.Redis.ProductCacheTTL)

	e.list("KAFKA_BROKERS", &c.Kafka.Brokers)
	e.str("KAFKA_TOPIC", &c.Kafka.Topic)

	e.bool("PAYMENT_DEMO_MODE", &c.Payment.DemoMode)
	e.str("PAYMENT_GATEWAY_URL", &c.Payment.GatewayURL)
	e.str("PAYMENT_KEY_ID", &c.Payment.KeyID)
	e.str("PAYMENT_KEY_SECRET", &c.Payment.KeySecret)
	e.str("PAYMENT_CURRENCY", &c.Payment.Currency)
	e.duration("PAYMENT_TIMEOUT", &c.Payment.Timeout)

	e.str("DEMO_BUYER_ID", &c.Demo.BuyerID)
	e.bool("SEED_DEMO_DATA", &c.Demo.Seed)
	e.duration("SHUTDOWN_TIMEOUT", &c.Shutdown.Timeout)
	e.bool("OTEL_STDOUT", &c.OTelStdout)

	return errors.Join(e.errs...)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("%w: DATABASE_URL is required for the postgres store", ErrInvalid))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver))
	}
	if !c.Payment.DemoMode {
		if c.Payment.KeyID == "" || c.Payment.KeySecret == "" {
			errs = append(errs, fmt.Errorf("%w: PAYMENT_KEY_ID and PAYMENT_KEY_SECRET are required outside demo mode", ErrInvalid))
		}
		if c.Payment.GatewayURL == "" {
			errs = append(errs, fmt.Errorf("%w: PAYMENT_GATEWAY_URL is required outside demo mode", ErrInvalid))
		}
	}
	if c.Payment.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: payment timeout must be positive", ErrInvalid))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, fmt.Errorf("%w: KAFKA_TOPIC is required when brokers are set", ErrInvalid))
	}
	return errors.Join(errs...)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) bool(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
			return
		}
		*dst = d
	}
}

func (e *envReader) list(key string, dst *[]string) {
	if v, ok := e.get(key); ok {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}
}
