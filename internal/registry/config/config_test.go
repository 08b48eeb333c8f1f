package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REDFLAG_JWT_SECRET", "s3cret")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 50051, cfg.Server.GRPCPort)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
}

func TestLoad_FilePrecedence(t *testing.T) {
	path := writeConfig(t, `
server:
  grpc_port: 9000
  http_port: 9001
database:
  driver: postgres
  host: db.internal
  name: flags
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  topic: registry
jwt:
  secret: from-file
  ttl: 2h
ratelimit:
  enabled: true
  backend: redis
  limit: 10
  window: 30s
redis:
  addr: redis:6379
`)
	t.Setenv("REDFLAG_DATABASE_HOST", "db.from.env")

	cfg, err := Load([]string{"--config", path, "--http-port", "9100"})
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.GRPCPort)
	assert.Equal(t, 9100, cfg.Server.HTTPPort, "flags beat the file")
	assert.Equal(t, "db.from.env", cfg.Database.Host, "env beats the file")
	assert.Equal(t, "flags", cfg.Database.Name)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load([]string{"--no-such-flag"})
	assert.Error(t, err)

	_, err = Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	_, err = Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret is required")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{GRPCPort: 50051, HTTPPort: 8080},
			Database: DatabaseConfig{Driver: "memory"},
			JWT:      JWTConfig{Secret: "x", TTL: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.GRPCPort = 70000 }, "server.grpc_port"},
		{"same ports", func(c *Config) { c.Server.HTTPPort = 50051 }, "must differ"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }, "database.driver"},
		{"postgres without host", func(c *Config) { c.Database.Driver = "postgres"; c.Database.Name = "x" }, "database.host"},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite" }, "database.path"},
		{"kafka without topic", func(c *Config) { c.Kafka = KafkaConfig{Enabled: true, Brokers: []string{"k:9092"}} }, "kafka.topic"},
		{"redis limiter without addr", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Backend: "redis", Limit: 1, Window: time.Second}
		}, "redis.addr"},
		{"unknown limiter", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Backend: "etcd", Limit: 1, Window: time.Second}
		}, "ratelimit.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadNotifier(t *testing.T) {
	cfg, err := LoadNotifier(nil)
	require.NoError(t, err, "the notifier does not need a jwt secret")
	assert.Equal(t, "redflag-notifier", cfg.Kafka.GroupID)

	cfg.Kafka.Topic = ""
	cfg.Kafka.GroupID = ""
	err = cfg.ValidateNotifier()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.topic")
	assert.Contains(t, err.Error(), "kafka.group_id")
}
