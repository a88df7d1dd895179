// Package config loads the server configuration from a yaml file with
// environment overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SeedAccount provisions one account at startup with a fixed API key.
type SeedAccount struct {
	UserID    string           `yaml:"user_id"`
	APIKey    string           `yaml:"api_key"`
	Cash      decimal.Decimal  `yaml:"cash"`
	Positions map[string]int64 `yaml:"positions"`
	Admin     bool             `yaml:"admin"`
}

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Market struct {
		Instrument       string           `yaml:"instrument"`
		DefaultPrecision int32            `yaml:"default_precision"`
		Precisions       map[string]int32 `yaml:"precisions"`
		CutoverHour      int              `yaml:"cutover_hour"`
		CutoverMinute    int              `yaml:"cutover_minute"`
	} `yaml:"market"`

	Kafka struct {
		Enabled         bool     `yaml:"enabled"`
		Brokers         []string `yaml:"brokers"`
		FillsTopic      string   `yaml:"fills_topic"`
		MarketDataTopic string   `yaml:"market_data_topic"`
	} `yaml:"kafka"`

	Storage struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`

	Accounts []SeedAccount `yaml:"accounts"`
}

// Default returns a runnable configuration with the demo accounts the
// server provisions when no seed accounts are configured.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":7070"
	cfg.Market.Instrument = "TEST"
	cfg.Market.DefaultPrecision = 3
	cfg.Market.CutoverHour = 16
	cfg.Market.CutoverMinute = 0
	cfg.Kafka.FillsTopic = "fills"
	cfg.Kafka.MarketDataTopic = "market-data"
	cfg.Storage.DataDir = "data"
	cfg.Logging.Level = "info"
	return cfg
}

// Load reads a yaml config file, applies defaults for anything unset,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Market.Instrument == "" {
		return fmt.Errorf("market instrument is required")
	}
	if c.Market.DefaultPrecision < 0 {
		return fmt.Errorf("default precision must be non-negative")
	}
	if c.Market.CutoverHour < 0 || c.Market.CutoverHour > 23 ||
		c.Market.CutoverMinute < 0 || c.Market.CutoverMinute > 59 {
		return fmt.Errorf("cutover time %02d:%02d out of range", c.Market.CutoverHour, c.Market.CutoverMinute)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled but no brokers configured")
	}
	for _, seed := range c.Accounts {
		if seed.UserID == "" || seed.APIKey == "" {
			return fmt.Errorf("seed accounts require user_id and api_key")
		}
	}
	return nil
}

func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("TRADEMATCH_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if brokers := os.Getenv("TRADEMATCH_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
		cfg.Kafka.Enabled = true
	}
	if dir := os.Getenv("TRADEMATCH_DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if level := os.Getenv("TRADEMATCH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
