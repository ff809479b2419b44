package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Admin     AdminConfig     `mapstructure:"admin"`
	AES       AESConfig       `mapstructure:"aes"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// StorageConfig selects the Ledger Store backend: postgres or memory.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ProcessorConfig configures the remote card processor.
type ProcessorConfig struct {
	APIURL        string        `mapstructure:"api_url"`
	ChargeTimeout time.Duration `mapstructure:"charge_timeout"`
	TestTimeout   time.Duration `mapstructure:"test_timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	SiteName      string        `mapstructure:"site_name"`
}

type WebhookConfig struct {
	Token          string `mapstructure:"token"`
	RateLimit      int    `mapstructure:"rate_limit"` // requests per minute per client
	LegacyKeyParam bool   `mapstructure:"legacy_key_param"`
}

type SyncConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	BatchSize       int           `mapstructure:"batch_size"`
	ClaimTTL        time.Duration `mapstructure:"claim_ttl"`
	RetentionDays   int           `mapstructure:"retention_days"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LedgerConfig struct {
	Dir string `mapstructure:"dir"`
}

type NotifyConfig struct {
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CheckoutConfig struct {
	RedirectURL    string        `mapstructure:"redirect_url"` // fmt template taking the order id
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	ResultCacheTTL time.Duration `mapstructure:"result_cache_ttl"`
}

type AdminConfig struct {
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"password_hash"` // argon2id encoded
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTExpiry    time.Duration `mapstructure:"jwt_expiry"`
	JWTIssuer    string        `mapstructure:"jwt_issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure"`
	ServiceName  string `mapstructure:"service_name"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: MMS_.
// Nested keys use underscore: MMS_DATABASE_HOST, MMS_WEBHOOK_TOKEN, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("MMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "settlement")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("processor.api_url", "https://secure.nmi.com/api/transact.php")
	v.SetDefault("processor.charge_timeout", "30s")
	v.SetDefault("processor.test_timeout", "15s")
	v.SetDefault("processor.rate_per_second", 10.0)
	v.SetDefault("processor.burst", 5)
	v.SetDefault("processor.site_name", "Marketplace")
	v.SetDefault("webhook.token", "")
	v.SetDefault("webhook.rate_limit", 120)
	v.SetDefault("webhook.legacy_key_param", true)
	v.SetDefault("sync.interval", "24h")
	v.SetDefault("sync.batch_size", 500)
	v.SetDefault("sync.claim_ttl", "2m")
	v.SetDefault("sync.retention_days", 90)
	v.SetDefault("sync.cleanup_interval", "24h")
	v.SetDefault("ledger.dir", "./data/ledgers")
	v.SetDefault("notify.url", "")
	v.SetDefault("notify.secret", "")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("checkout.redirect_url", "/checkout/order-received/%d")
	v.SetDefault("checkout.lock_ttl", "3m")
	v.SetDefault("checkout.result_cache_ttl", "24h")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.jwt_expiry", "8h")
	v.SetDefault("admin.jwt_issuer", "multi-merchant-settlement")
	v.SetDefault("aes.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "multi-merchant-settlement")
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error

	key, err := hex.DecodeString(c.AES.Key)
	if err != nil || len(key) != 32 {
		errs = append(errs, errors.New("aes.key must be 64 hex characters"))
	}
	if c.Webhook.Token == "" {
		errs = append(errs, errors.New("webhook.token is required"))
	}
	if c.Sync.BatchSize <= 0 {
		errs = append(errs, errors.New("sync.batch_size must be positive"))
	}
	if c.Storage.Driver != "postgres" && c.Storage.Driver != "memory" {
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	return errors.Join(errs...)
}
