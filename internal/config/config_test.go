package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsWithSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "marketflow-events", cfg.Kafka.Topic)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("STORE_FILE", "/tmp/state.json")
	t.Setenv("STORE_LATENCY", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SEED_DEMO", "false")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "/tmp/state.json", cfg.Store.File)
	assert.Equal(t, 250*time.Millisecond, cfg.Store.Latency)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.False(t, cfg.Store.SeedDemo)
	assert.Equal(t, 2525, cfg.SMTP.Port)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketflow.yaml")
	yamlDoc := `
http_addr: ":9000"
store:
  driver: redis
  redis_addr: "cache:6379"
  latency: 1s
auth:
  jwt_secret: "` + testSecret + `"
  access_ttl: 5m
scheduler:
  overdue_sweep_spec: "0 0 * * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	t.Setenv("HTTP_ADDR", ":9100")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.HTTPAddr)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, time.Second, cfg.Store.Latency)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "0 0 * * * *", cfg.Scheduler.OverdueSweepSpec)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"unknown driver", map[string]string{"JWT_SECRET": testSecret, "STORE_DRIVER": "mongo"}},
		{"bad duration", map[string]string{"JWT_SECRET": testSecret, "STORE_LATENCY": "soon"}},
		{"bad bool", map[string]string{"JWT_SECRET": testSecret, "SEED_DEMO": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")

			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}
