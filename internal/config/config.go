package config

import (
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Safety    SafetyConfig    `yaml:"safety"`
	Quota     QuotaConfig     `yaml:"quota"`
	Policy    PolicyConfig    `yaml:"policy"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + strconv.Itoa(d.Port) + "/" + d.Name + "?sslmode=disable"
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

// SafetyConfig tunes the scanner's scoring weights. The approval threshold
// itself is fixed by the SafetyResult contract.
type SafetyConfig struct {
	PositiveWeight float64 `yaml:"positive_weight"`
	NegativeWeight float64 `yaml:"negative_weight"`
	RedactionToken string  `yaml:"redaction_token"`
}

// QuotaConfig holds default per-day allowances. Identity keys may carry
// per-key overrides.
type QuotaConfig struct {
	ComposeDaily int `yaml:"compose_daily"`
	AssistDaily  int `yaml:"assist_daily"`

	// RequestsPerMinute is a burst guard across all endpoints, independent
	// of the daily allowances.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type PolicyConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "scribe",
			User:            "scribe",
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			DB:        0,
			PoolSize:  50,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
		Safety: SafetyConfig{
			PositiveWeight: 0.1,
			NegativeWeight: 0.2,
			RedactionToken: "[redacted]",
		},
		Quota: QuotaConfig{
			ComposeDaily:      5,
			AssistDaily:       5,
			RequestsPerMinute: 30,
		},
		Policy: PolicyConfig{
			Enabled:           false,
			BundlePath:        "/etc/scribe/policies",
			EvaluationTimeout: 100 * time.Millisecond,
		},
	}
}
