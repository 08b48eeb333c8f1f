// Package config loads the registry configuration from flags, a YAML file and
// REDFLAG_ prefixed environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "REDFLAG"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	SendGrid  SendGridConfig  `mapstructure:"sendgrid"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	GRPCPort int `mapstructure:"grpc_port"`
	HTTPPort int `mapstructure:"http_port"`
}

// DatabaseConfig selects the repository. Driver is memory, postgres or sqlite.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
	// ConnectTimeout bounds the startup retries against the database.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type KafkaConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	Partitions int      `mapstructure:"partitions"`
	BufferSize int      `mapstructure:"buffer_size"`
	GroupID    string   `mapstructure:"group_id"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type SendGridConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
	// AdminEmail receives registration notices.
	AdminEmail string `mapstructure:"admin_email"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig allows Limit requests per Window and caller. Backend is
// memory or redis.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
	Release     string `mapstructure:"release"`
}

// SeedConfig points at a YAML fixture loaded into the repository at startup.
type SeedConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.http_port", 8080)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "redflag")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "redflag")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "redflag.db")
	v.SetDefault("database.connect_timeout", 30*time.Second)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "redflag-events")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.buffer_size", 1000)
	v.SetDefault("kafka.group_id", "redflag-notifier")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 24*time.Hour)

	v.SetDefault("sendgrid.api_key", "")
	v.SetDefault("sendgrid.from_email", "no-reply@redflag.local")
	v.SetDefault("sendgrid.from_name", "Red Flag Registry")
	v.SetDefault("sendgrid.admin_email", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.limit", 120)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.release", "")

	v.SetDefault("seed.path", "")
	v.SetDefault("log.development", false)
}

// Load parses args (without the program name) and returns a Config validated
// for the registry server.
func Load(args []string) (*Config, error) {
	cfg, err := load(args)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadNotifier is Load for the notifier, which only needs kafka and mail settings.
func LoadNotifier(args []string) (*Config, error) {
	cfg, err := load(args)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateNotifier(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("redflag", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	fs.Int("grpc-port", 50051, "gRPC listen port")
	fs.Int("http-port", 8080, "HTTP listen port")
	fs.String("database-driver", "memory", "repository driver: memory, postgres or sqlite")
	fs.String("seed", "", "YAML fixture to load at startup")
	fs.Bool("dev", false, "development logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	for key, flag := range map[string]string{
		"server.grpc_port": "grpc-port",
		"server.http_port": "http-port",
		"database.driver":  "database-driver",
		"seed.path":        "seed",
		"log.development":  "dev",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(validPort(c.Server.GRPCPort), "server.grpc_port %d out of range", c.Server.GRPCPort)
	check(validPort(c.Server.HTTPPort), "server.http_port %d out of range", c.Server.HTTPPort)
	check(c.Server.GRPCPort != c.Server.HTTPPort, "server.grpc_port and server.http_port must differ")

	switch c.Database.Driver {
	case "memory":
	case "postgres":
		check(c.Database.Host != "", "database.host is required for postgres")
		check(c.Database.Name != "", "database.name is required for postgres")
	case "sqlite":
		check(c.Database.Path != "", "database.path is required for sqlite")
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of memory, postgres, sqlite", c.Database.Driver))
	}

	check(c.JWT.Secret != "", "jwt.secret is required")
	check(c.JWT.TTL > 0, "jwt.ttl must be positive")

	if c.Kafka.Enabled {
		check(len(c.Kafka.Brokers) > 0, "kafka.brokers is required when kafka is enabled")
		check(c.Kafka.Topic != "", "kafka.topic is required when kafka is enabled")
	}

	if c.RateLimit.Enabled {
		check(c.RateLimit.Limit > 0, "ratelimit.limit must be positive")
		check(c.RateLimit.Window > 0, "ratelimit.window must be positive")
		switch c.RateLimit.Backend {
		case "memory":
		case "redis":
			check(c.Redis.Addr != "", "redis.addr is required for the redis rate limiter")
		default:
			errs = append(errs, fmt.Errorf("ratelimit.backend %q is not one of memory, redis", c.RateLimit.Backend))
		}
	}

	return errors.Join(errs...)
}

// ValidateNotifier checks the settings the notifier consumes.
func (c *Config) ValidateNotifier() error {
	var errs []error
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required"))
	}
	if c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required"))
	}
	if c.Kafka.GroupID == "" {
		errs = append(errs, errors.New("kafka.group_id is required"))
	}
	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		errs = append(errs, errors.New("sendgrid.from_email is required with an api key"))
	}
	return errors.Join(errs...)
}

func validPort(p int) bool {
	return p > 0 && p < 65536
}
