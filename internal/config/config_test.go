package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadWith(env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.True(t, cfg.Payment.DemoMode)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, 5*time.Minute, cfg.Redis.ProductCacheTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFileThenEnvLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service_name: from-file
http_addr: ":9090"
redis:
  addr: redis:6379
  product_cache_ttl: 30s
kafka:
  brokers: [k1:9092, k2:9092]
payment:
  demo_mode: false
  key_id: rzp_file
  key_secret: file-secret
  timeout: 3s
`), 0o600))

	cfg, err := LoadWith(env(map[string]string{
		"CONFIG_FILE":    path,
		"HTTP_ADDR":      ":7070",
		"PAYMENT_KEY_ID": "rzp_env",
		"KAFKA_BROKERS":  "k3:9092, k4:9092",
	}))
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.ServiceName)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Redis.ProductCacheTTL)
	assert.Equal(t, []string{"k3:9092", "k4:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Payment.DemoMode)
	assert.Equal(t, "rzp_env", cfg.Payment.KeyID)
	assert.Equal(t, "file-secret", cfg.Payment.KeySecret)
	assert.Equal(t, 3*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, "checkout-events", cfg.Kafka.Topic)
}

func TestGatewayModeRequiresCredentials(t *testing.T) {
	_, err := LoadWith(env(map[string]string{"PAYMENT_DEMO_MODE": "false"}))
	assert.ErrorIs(t, err, ErrInvalid)

	cfg, err := LoadWith(env(map[string]string{
		"PAYMENT_DEMO_MODE":  "false",
		"PAYMENT_KEY_ID":     "rzp_test",
		"PAYMENT_KEY_SECRET": "secret",
	}))
	require.NoError(t, err)
	assert.False(t, cfg.Payment.DemoMode)
}

func TestInvalidValues(t *testing.T) {
	for name, vars := range map[string]map[string]string{
		"bad bool":          {"PAYMENT_DEMO_MODE": "maybe"},
		"bad duration":      {"PAYMENT_TIMEOUT": "soon"},
		"bad int":           {"REDIS_DB": "one"},
		"unknown store":     {"STORE_DRIVER": "mongo"},
		"postgres no dsn":   {"STORE_DRIVER": "postgres"},
		"non-positive wait": {"PAYMENT_TIMEOUT": "0s"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadWith(env(vars))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := LoadWith(env(map[string]string{"CONFIG_FILE": filepath.Join(t.TempDir(), "absent.yaml")}))
	assert.Error(t, err)
}
