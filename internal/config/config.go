package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Classifier modes.
const (
	ModeRules    = "rules"
	ModeAssisted = "assisted"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Filter     FilterConfig     `yaml:"filter"`
	Limits     LimitsConfig     `yaml:"limits"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	// MinPromptLength and MaxPromptLength bound the prompt in runes at the HTTP edge.
	MinPromptLength int `yaml:"min_prompt_length"`
	MaxPromptLength int `yaml:"max_prompt_length"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN renders a postgres connection URL. The password is escaped.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// Enabled reports whether a database host is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DatabaseDSNFromEnv returns DATABASE_URL, or a DSN assembled from DB_HOST,
// DB_PORT, DB_USER, DB_PASSWORD and DB_NAME with local defaults.
func DatabaseDSNFromEnv() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	port, err := strconv.Atoi(envOrDefault("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	return DatabaseConfig{
		Host:     envOrDefault("DB_HOST", "localhost"),
		Port:     port,
		User:     envOrDefault("DB_USER", "imagerouter"),
		Password: envOrDefault("DB_PASSWORD", "imagerouter-dev"),
		Name:     envOrDefault("DB_NAME", "imagerouter"),
	}.DSN()
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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

type ClassifierConfig struct {
	// Mode is "rules" or "assisted".
	Mode string `yaml:"mode"`
	// LexiconFile overrides the embedded keyword lists. Relative paths are
	// resolved against the config directory.
	LexiconFile    string               `yaml:"lexicon_file"`
	Timeout        time.Duration        `yaml:"timeout"`
	MaxTokens      int                  `yaml:"max_tokens"`
	Primary        ProviderRoute        `yaml:"primary"`
	Fallback       []ProviderRoute      `yaml:"fallback"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// Assisted reports whether the AI-backed classifier should be built.
func (c ClassifierConfig) Assisted() bool {
	return c.Mode == ModeAssisted
}

type ProviderRoute struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type CircuitBreakerConfig struct {
	FailureThreshold      int           `yaml:"failure_threshold"`
	RecoveryProbeInterval time.Duration `yaml:"recovery_probe_interval"`
}

type FilterConfig struct {
	Personal  PersonalFilterConfig  `yaml:"personal"`
	Injection InjectionFilterConfig `yaml:"injection"`
	Policy    PolicyFilterConfig    `yaml:"policy"`
}

type PersonalFilterConfig struct {
	Enabled bool `yaml:"enabled"`
}

type InjectionFilterConfig struct {
	Enabled        bool    `yaml:"enabled"`
	BlockThreshold float64 `yaml:"block_threshold"`
	FlagThreshold  float64 `yaml:"flag_threshold"`
}

type PolicyFilterConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

type LimitsConfig struct {
	// DefaultRPM applies to keys without their own limit.
	DefaultRPM int `yaml:"default_rpm"`
	// DefaultDailyAssisted caps AI-backed classifications per school and day.
	DefaultDailyAssisted int `yaml:"default_daily_assisted"`
	// LocalBurst is the token bucket burst used when Redis is unavailable.
	LocalBurst int `yaml:"local_burst"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      10 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 15 * time.Second,
			MinPromptLength:  3,
			MaxPromptLength:  2000,
		},
		Database: DatabaseConfig{
			Port:            5432,
			Name:            "imagerouter",
			User:            "imagerouter",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize: 20,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
		Classifier: ClassifierConfig{
			Mode:      ModeRules,
			Timeout:   5 * time.Second,
			MaxTokens: 120,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:      5,
				RecoveryProbeInterval: 30 * time.Second,
			},
		},
		Filter: FilterConfig{
			Personal: PersonalFilterConfig{Enabled: true},
			Injection: InjectionFilterConfig{
				Enabled:        true,
				BlockThreshold: 0.9,
				FlagThreshold:  0.6,
			},
			Policy: PolicyFilterConfig{
				Enabled:           false,
				BundlePath:        "/etc/imagerouter/policies",
				EvaluationTimeout: 100 * time.Millisecond,
			},
		},
		Limits: LimitsConfig{
			DefaultRPM:           60,
			DefaultDailyAssisted: 500,
			LocalBurst:           10,
		},
	}
}
