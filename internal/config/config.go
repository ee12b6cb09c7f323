// Package config loads the service configuration once at start-up.
//
// Sources, in decreasing priority:
//  1. environment variables prefixed with METRICS_ (e.g. METRICS_API_KEY)
//  2. an optional yaml file ./configs/config.yaml
//  3. defaults
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Listen string `mapstructure:"listen"`
	APIKey string `mapstructure:"api_key"`

	DBDriver       string        `mapstructure:"db_driver"`
	DBPath         string        `mapstructure:"db_path"`
	DBHost         string        `mapstructure:"db_host"`
	DBPort         int           `mapstructure:"db_port"`
	DBUser         string        `mapstructure:"db_user"`
	DBPassword     string        `mapstructure:"db_password"`
	DBName         string        `mapstructure:"db_name"`
	DBTLSCAFile    string        `mapstructure:"db_tls_ca_file"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	LogPath  string `mapstructure:"log_path"`
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`

	// TelemetryPath serves Prometheus collectors. Empty disables it.
	TelemetryPath string `mapstructure:"telemetry_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("api_key", "")
	v.SetDefault("db_driver", DriverSQLite)
	v.SetDefault("db_path", "../db/metrics.db")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 0)
	v.SetDefault("db_user", "")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "metrics")
	v.SetDefault("db_tls_ca_file", "")
	v.SetDefault("connect_timeout", 10*time.Second)
	v.SetDefault("log_path", "../log")
	v.SetDefault("log_file", "webService.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("telemetry_path", "/prometheus")
}

// Load reads the configuration from the default locations.
func Load() (*Config, error) {
	return LoadFrom("./configs")
}

// LoadFrom is Load with an explicit directory for the optional config.yaml.
func LoadFrom(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("METRICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key must not be empty")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.TelemetryPath != "" && !strings.HasPrefix(c.TelemetryPath, "/") {
		return fmt.Errorf("telemetry_path must start with '/', got %q", c.TelemetryPath)
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("db_path must not be empty for driver %s", c.DBDriver)
		}
	case DriverMySQL, DriverPostgres:
		if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("db_host, db_user and db_name are required for driver %s", c.DBDriver)
		}
	default:
		return fmt.Errorf("unknown db_driver %q", c.DBDriver)
	}
	return nil
}

func (c *Config) port() int {
	if c.DBPort != 0 {
		return c.DBPort
	}
	if c.DBDriver == DriverPostgres {
		return 5432
	}
	return 3306
}

// DSN renders the data source name for the configured driver. For mysql with a CA file the
// caller must register the TLS config under MySQLTLSConfigName before opening.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = c.DBUser
		mc.Passwd = c.DBPassword
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.DBHost, fmt.Sprint(c.port()))
		mc.DBName = c.DBName
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Timeout = c.ConnectTimeout
		mc.Params = map[string]string{"time_zone": "'+00:00'"}
		if c.DBTLSCAFile != "" {
			mc.TLSConfig = MySQLTLSConfigName
		}
		return mc.FormatDSN()
	case DriverPostgres:
		params := url.Values{}
		params.Set("connect_timeout", fmt.Sprint(int(c.ConnectTimeout.Seconds())))
		if c.DBTLSCAFile != "" {
			params.Set("sslmode", "verify-full")
			params.Set("sslrootcert", c.DBTLSCAFile)
		} else {
			params.Set("sslmode", "disable")
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DBUser, c.DBPassword),
			Host:     net.JoinHostPort(c.DBHost, fmt.Sprint(c.port())),
			Path:     "/" + c.DBName,
			RawQuery: params.Encode(),
		}
		return u.String()
	default:
		return fmt.Sprintf("file:%s?_busy_timeout=%d", c.DBPath, c.ConnectTimeout.Milliseconds())
	}
}

// MySQLTLSConfigName is the key the CA-backed tls.Config is registered under.
const MySQLTLSConfigName = "metrics-ca"
