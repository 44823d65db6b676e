package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	PGDSN           string        `mapstructure:"pg_dsn"`
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	AdminToken      string        `mapstructure:"admin_token"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	MSSQL           MSSQLConfig   `mapstructure:"mssql"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

// MSSQLConfig holds the environment profile of the secondary database.
// When Enabled is false the MSSQL checks answer in mock mode.
type MSSQLConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Database string   `mapstructure:"database"`
	User     string   `mapstructure:"user"`
	Password string   `mapstructure:"password"`
	Timeout  int      `mapstructure:"timeout"`
	Encrypt  string   `mapstructure:"encrypt"`
	Adapters []string `mapstructure:"adapters"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

// keys maps config keys to the environment variables the service has always
// read. Nested keys use the dotted form understood by viper.
var keys = map[string]string{
	"pg_dsn":           "PG_DSN",
	"http_addr":        "HTTP_ADDR",
	"metrics_addr":     "METRICS_ADDR",
	"admin_token":      "ADMIN_TOKEN",
	"monitor_interval": "MONITOR_INTERVAL",
	"mssql.enabled":    "MSSQL_ENABLED",
	"mssql.host":       "MSSQL_HOST",
	"mssql.port":       "MSSQL_PORT",
	"mssql.database":   "MSSQL_DATABASE",
	"mssql.user":       "MSSQL_USER",
	"mssql.password":   "MSSQL_PASSWORD",
	"mssql.timeout":    "MSSQL_TIMEOUT",
	"mssql.encrypt":    "MSSQL_ENCRYPT",
	"mssql.adapters":   "MSSQL_ADAPTERS",
	"redis.addr":       "REDIS_ADDR",
	"redis.password":   "REDIS_PASSWORD",
	"redis.db":         "REDIS_DB",
	"redis.result_ttl": "RESULT_TTL",
}

// Load reads configuration from the environment and, when DBCHECK_CONFIG
// points at a YAML file, from that file. Environment values win.
func Load() (Config, error) {
	v := viper.New()
	applyDefaults(v)
	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path := getenv("DBCHECK_CONFIG", ""); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.MSSQL.Adapters = splitList(cfg.MSSQL.Adapters)
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	// No primary store unless PG_DSN is set.
	v.SetDefault("pg_dsn", "")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("metrics_addr", ":9091")
	v.SetDefault("monitor_interval", time.Duration(0))
	v.SetDefault("mssql.enabled", false)
	v.SetDefault("mssql.port", 1433)
	v.SetDefault("mssql.database", "master")
	v.SetDefault("mssql.timeout", 5)
	v.SetDefault("mssql.encrypt", "disable")
	v.SetDefault("mssql.adapters", []string{"tds", "odbc", "engine"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.result_ttl", time.Hour)
}

// splitList flattens comma separated entries so MSSQL_ADAPTERS=tds,odbc and a
// YAML list behave the same.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
