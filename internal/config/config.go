package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreInfluxDB = "influxdb"
	StoreSQL      = "sql"
)

// Config is the full service configuration.
type Config struct {
	Port      string          `mapstructure:"port"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	InfluxDB  InfluxDBConfig  `mapstructure:"influxdb"`
	SQL       SQLConfig       `mapstructure:"sql"`
	Lock      LockConfig      `mapstructure:"lock"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Clear     ClearConfig     `mapstructure:"clear"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // rotated file output; empty means stdout only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // influxdb | sql
}

type InfluxDBConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Org     string        `mapstructure:"org"`
	Bucket  string        `mapstructure:"bucket"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SQLConfig is the relational connection. It always holds operator accounts
// and holds events too when store.driver is "sql".
type SQLConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | mysql | postgres
	DSN    string `mapstructure:"dsn"`
}

type LockConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	Retry         time.Duration `mapstructure:"retry"`
}

type HTTPConfig struct {
	Timing            bool          `mapstructure:"timing"`
	ClearMethod       string        `mapstructure:"clear_method"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
}

// ClearConfig holds the fallback bounds used when a clear request omits them.
type ClearConfig struct {
	DefaultLookback  time.Duration `mapstructure:"default_lookback"`
	DefaultLookahead time.Duration `mapstructure:"default_lookahead"`
}

type GeneratorConfig struct {
	DefaultCount  int           `mapstructure:"default_count"`
	DefaultWindow time.Duration `mapstructure:"default_window"`
	Jitter        time.Duration `mapstructure:"jitter"`
	Batch         bool          `mapstructure:"batch"`
	Seed          uint64        `mapstructure:"seed"` // 0 picks a time-based seed
}

type AuthConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// MinSigningKeyLen is the shortest HS256 key accepted when auth is on.
const MinSigningKeyLen = 32

const envPrefix = "EVENTS"

// legacyEnv maps keys to the environment names the first deployments used.
var legacyEnv = map[string]string{
	"influxdb.url":    "INFLUXDB_URL",
	"influxdb.token":  "INFLUXDB_TOKEN",
	"influxdb.org":    "INFLUXDB_ORG",
	"influxdb.bucket": "INFLUXDB_BUCKET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.compress", false)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("store.driver", StoreInfluxDB)
	v.SetDefault("influxdb.url", "http://localhost:8086")
	v.SetDefault("influxdb.token", "")
	v.SetDefault("influxdb.org", "")
	v.SetDefault("influxdb.bucket", "events")
	v.SetDefault("influxdb.timeout", 10*time.Second)
	v.SetDefault("sql.driver", "sqlite")
	v.SetDefault("sql.dsn", "app.db")
	v.SetDefault("lock.redis_addr", "")
	v.SetDefault("lock.redis_password", "")
	v.SetDefault("lock.redis_db", 0)
	v.SetDefault("lock.ttl", 5*time.Second)
	v.SetDefault("lock.retry", 50*time.Millisecond)
	v.SetDefault("http.timing", true)
	v.SetDefault("http.clear_method", http.MethodDelete)
	v.SetDefault("http.read_header_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 60*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("clear.default_lookback", 1080*24*time.Hour)
	v.SetDefault("clear.default_lookahead", 24*time.Hour)
	v.SetDefault("generator.default_count", 10)
	v.SetDefault("generator.default_window", 3*24*time.Hour)
	v.SetDefault("generator.jitter", time.Duration(0))
	v.SetDefault("generator.batch", true)
	v.SetDefault("generator.seed", 0)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
}

// Load reads configs/config.yml (or the file at path when non-empty), a local
// .env file and EVENTS_* environment overrides.
func Load(path string) (*Config, *viper.Viper, error) {
	// .env is optional and only meant for local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HTTP.ClearMethod = strings.ToUpper(strings.TrimSpace(cfg.HTTP.ClearMethod))
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreInfluxDB:
		if c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "" {
			return errors.New("influxdb.url and influxdb.bucket are required for the influxdb store")
		}
	case StoreSQL:
	default:
		return fmt.Errorf("unknown store.driver %q (want influxdb or sql)", c.Store.Driver)
	}
	switch c.HTTP.ClearMethod {
	case http.MethodDelete, http.MethodPost:
	default:
		return fmt.Errorf("http.clear_method must be DELETE or POST, got %q", c.HTTP.ClearMethod)
	}
	if c.Auth.Enabled {
		if c.Auth.SigningKey == "" {
			return errors.New("auth.signing_key is required when auth is enabled")
		}
		if len(c.Auth.SigningKey) < MinSigningKeyLen {
			return fmt.Errorf("auth.signing_key must be at least %d bytes", MinSigningKeyLen)
		}
		if c.Auth.TokenTTL < 0 {
			return errors.New("auth.token_ttl must not be negative")
		}
	}
	if c.Generator.DefaultCount < 0 {
		return errors.New("generator.default_count must not be negative")
	}
	return nil
}

// Watch calls onLevel with the new log level whenever the config file changes.
func Watch(v *viper.Viper, onLevel func(level string)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onLevel(v.GetString("log.level"))
	})
	v.WatchConfig()
}
