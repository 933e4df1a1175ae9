// Package config loads the catalog settings from a YAML file, then applies
// overrides from an optional .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/gartstein/storemanagement/internal/catalog/db"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDatabaseDriver = "STORE_DATABASE_DRIVER"
	EnvDatabaseDSN    = "STORE_DATABASE_DSN"
	EnvKafkaBrokers   = "STORE_KAFKA_BROKERS"
	EnvKafkaTopic     = "STORE_KAFKA_TOPIC"

	defaultTopic          = "catalog-events"
	defaultGroupID        = "storemanagement"
	defaultConnectTimeout = 30 * time.Second
)

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

type LogConfig struct {
	Development bool `yaml:"development"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

// KafkaConfig configures change events. Events are disabled when no broker
// is configured.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	// GroupID is the consumer group used when tailing events.
	GroupID string `yaml:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Connection converts the settings into the db package form.
func (d DatabaseConfig) Connection() *db.Config {
	return &db.Config{
		Driver:          d.Driver,
		DSN:             d.DSN,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnectTimeout:  d.ConnectTimeout,
	}
}

// Load reads the YAML file at path. Values from envFile, when it exists, and
// then from the environment override the file. An empty envFile skips the
// .env lookup.
func Load(path, envFile string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	overrides, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := overrides[key]
		return v, ok
	})

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDatabaseDriver); ok {
		c.Database.Driver = v
	}
	if v, ok := lookup(EnvDatabaseDSN); ok {
		c.Database.DSN = v
	}
	if v, ok := lookup(EnvKafkaBrokers); ok {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup(EnvKafkaTopic); ok {
		c.Kafka.Topic = v
	}
}

func (c *Config) validateAndNormalize() error {
	d := &c.Database
	d.Driver = strings.ToLower(strings.TrimSpace(d.Driver))
	if d.Driver == "" {
		d.Driver = db.DriverPostgres
	}
	if d.Driver != db.DriverPostgres && d.Driver != db.DriverSQLite {
		return fmt.Errorf("config: database.driver must be %q or %q, got %q", db.DriverPostgres, db.DriverSQLite, d.Driver)
	}
	if d.DSN == "" {
		return fmt.Errorf("config: database.dsn must be set")
	}
	if d.MaxOpenConns < 0 || d.MaxIdleConns < 0 {
		return fmt.Errorf("config: database connection limits must not be negative")
	}
	if d.ConnectTimeout <= 0 {
		d.ConnectTimeout = defaultConnectTimeout
	}

	if c.Kafka.Enabled() {
		if c.Kafka.Topic == "" {
			c.Kafka.Topic = defaultTopic
		}
		if c.Kafka.GroupID == "" {
			c.Kafka.GroupID = defaultGroupID
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
