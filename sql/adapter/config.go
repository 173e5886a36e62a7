package adapter

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"spmapper"
)

// EnvPrefix prefixes the environment keys read by LoadEnvConfig.
const EnvPrefix = "SPMAPPER_DB_"

// Config holds SQL site connection configuration.
type Config struct {
	// Basic connection info
	Driver   string            `yaml:"driver"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	DBName   string            `yaml:"dbname"`  // file path for SQLite
	SSLMode  string            `yaml:"sslmode"` // PostgreSQL only
	Options  map[string]string `yaml:"options"`

	// Connection pooling
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`

	// Timeouts
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	TxTimeout      time.Duration `yaml:"tx_timeout"`
}

// Option configures a SQL site connection.
type Option func(*Config)

// WithDriver selects the adapter by registry name.
func WithDriver(name string) Option {
	return func(c *Config) {
		c.Driver = name
	}
}

// WithDatabase configures database connection.
func WithDatabase(host string, port int, user, password, dbname string) Option {
	return func(c *Config) {
		c.Host = host
		c.Port = port
		c.User = user
		c.Password = password
		c.DBName = dbname
	}
}

// WithFilePath sets the database file for SQLite. ":memory:" selects an
// in-memory database.
func WithFilePath(path string) Option {
	return func(c *Config) {
		c.DBName = path
	}
}

// WithSSL configures SSL settings.
func WithSSL(sslMode string) Option {
	return func(c *Config) {
		c.SSLMode = sslMode
	}
}

// WithPooling configures connection pooling.
func WithPooling(maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) Option {
	return func(c *Config) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
		c.ConnMaxLifetime = maxLifetime
		c.ConnMaxIdleTime = maxIdleTime
	}
}

// WithTimeouts configures operation timeouts.
func WithTimeouts(connect, tx time.Duration) Option {
	return func(c *Config) {
		c.ConnectTimeout = connect
		c.TxTimeout = tx
	}
}

// WithOption sets a driver-specific connection parameter.
func WithOption(key, value string) Option {
	return func(c *Config) {
		if c.Options == nil {
			c.Options = make(map[string]string)
		}
		c.Options[key] = value
	}
}

// DefaultConfig returns a SQL configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		SSLMode:         "disable",
		Options:         make(map[string]string),
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		ConnectTimeout:  30 * time.Second,
		TxTimeout:       30 * time.Second,
	}
}

// NewConfig creates a configuration from defaults and options.
func NewConfig(opts ...Option) Config {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return config
}

// SQLiteConfig returns a single-connection SQLite configuration.
func SQLiteConfig(path string, opts ...Option) Config {
	base := []Option{WithDriver("sqlite"), WithFilePath(path)}
	config := NewConfig(append(base, opts...)...)
	config.MaxOpenConns = 1
	return config
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	switch {
	case c.Driver == "":
		return &spmapper.ConfigError{Field: "driver", Message: "driver is required"}
	case !Exists(c.Driver):
		return &spmapper.ConfigError{Field: "driver", Message: fmt.Sprintf("unknown driver %q", c.Driver)}
	case c.Port < 0 || c.Port > 65535:
		return &spmapper.ConfigError{Field: "port", Message: fmt.Sprintf("port %d out of range", c.Port)}
	case c.MaxOpenConns < 0 || c.MaxIdleConns < 0:
		return &spmapper.ConfigError{Field: "pool", Message: "connection limits must not be negative"}
	}
	return nil
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, &spmapper.ConfigError{Message: fmt.Sprintf("parse %s: %v", path, err), Err: err}
	}
	return config, config.Validate()
}

// LoadEnvConfig reads SPMAPPER_DB_* settings from dotenv files over the
// defaults. Variables set in the process environment take precedence. With
// no files, ".env" is read if present.
func LoadEnvConfig(files ...string) (Config, error) {
	values := map[string]string{}
	if len(files) > 0 || fileExists(".env") {
		read, err := godotenv.Read(files...)
		if err != nil {
			return Config{}, fmt.Errorf("read env files: %w", err)
		}
		values = read
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := values[EnvPrefix+key]
		return v, ok
	}

	config := DefaultConfig()
	strs := map[string]*string{
		"DRIVER":   &config.Driver,
		"HOST":     &config.Host,
		"USER":     &config.User,
		"PASSWORD": &config.Password,
		"NAME":     &config.DBName,
		"SSLMODE":  &config.SSLMode,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PORT":           &config.Port,
		"MAX_OPEN_CONNS": &config.MaxOpenConns,
		"MAX_IDLE_CONNS": &config.MaxIdleConns,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := cast.ToIntE(strings.TrimSpace(v))
			if err != nil {
				return Config{}, &spmapper.ConfigError{Field: EnvPrefix + key, Message: err.Error(), Err: err}
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"CONN_MAX_LIFETIME":  &config.ConnMaxLifetime,
		"CONN_MAX_IDLE_TIME": &config.ConnMaxIdleTime,
		"CONNECT_TIMEOUT":    &config.ConnectTimeout,
		"TX_TIMEOUT":         &config.TxTimeout,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := cast.ToDurationE(strings.TrimSpace(v))
			if err != nil {
				return Config{}, &spmapper.ConfigError{Field: EnvPrefix + key, Message: err.Error(), Err: err}
			}
			*dst = d
		}
	}

	return config, config.Validate()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
