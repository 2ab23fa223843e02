package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	TAXII     TAXIIConfig     `mapstructure:"taxii"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLS             bool          `mapstructure:"tls"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Schema          string        `mapstructure:"schema"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.Schema,
	)
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	StreamName string `mapstructure:"stream_name"`
	Subject    string `mapstructure:"subject"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// TAXIIConfig holds protocol-level tunables
type TAXIIConfig struct {
	// Result sets larger than PageSize are split into parts
	PageSize int `mapstructure:"page_size"`
	// How long materialized result sets remain fulfillable
	ResultRetention time.Duration `mapstructure:"result_retention"`
	// Whether poll results are considered ready synchronously.
	// When false, clients that allow asynchronous delivery get PENDING.
	SyncResultsReady bool `mapstructure:"sync_results_ready"`
	// Estimated wait (seconds) advertised on PENDING statuses
	EstimatedWait int `mapstructure:"estimated_wait"`
	// Include present-header diagnostics in failure statuses
	VerboseStatus bool `mapstructure:"verbose_status"`
}

// Defaults applied when the config file omits TAXII settings
const (
	DefaultPageSize        = 3
	DefaultResultRetention = 7 * 24 * time.Hour
	DefaultEstimatedWait   = 300
)

// Normalize fills in zero-valued TAXII settings with defaults
func (c *TAXIIConfig) Normalize() {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.ResultRetention <= 0 {
		c.ResultRetention = DefaultResultRetention
	}
	if c.EstimatedWait <= 0 {
		c.EstimatedWait = DefaultEstimatedWait
	}
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/taxiihub")
	}

	v.SetEnvPrefix("TAXIIHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	v.BindEnv("redis.host", "TAXIIHUB_REDIS_HOST")
	v.BindEnv("redis.port", "TAXIIHUB_REDIS_PORT")
	v.BindEnv("redis.password", "TAXIIHUB_REDIS_PASSWORD")
	v.BindEnv("database.host", "TAXIIHUB_DATABASE_HOST")
	v.BindEnv("database.port", "TAXIIHUB_DATABASE_PORT")
	v.BindEnv("database.user", "TAXIIHUB_DATABASE_USER")
	v.BindEnv("database.password", "TAXIIHUB_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "TAXIIHUB_DATABASE_DBNAME")
	v.BindEnv("database.sslmode", "TAXIIHUB_DATABASE_SSLMODE")
	v.BindEnv("nats.enabled", "TAXIIHUB_NATS_ENABLED")
	v.BindEnv("app.environment", "TAXIIHUB_APP_ENVIRONMENT")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.TAXII.Normalize()

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}
