package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Engine struct {
		PrimaryInstrument  string        `yaml:"primary_instrument"`
		MomentumInstrument string        `yaml:"momentum_instrument"`
		Instruments        []string      `yaml:"instruments"`
		BarInterval        time.Duration `yaml:"bar_interval"`
		WindowBars         int           `yaml:"window_bars"`
		WindowReadings     int           `yaml:"window_readings"`
		Retention          time.Duration `yaml:"retention"`
	} `yaml:"engine"`
	Coinbase struct {
		KeyName        string        `yaml:"key_name"`
		PrivateKey     string        `yaml:"private_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		RestURL        string        `yaml:"rest_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"coinbase"`
	Gateio struct {
		BaseURL      string            `yaml:"base_url"`
		Contracts    map[string]string `yaml:"contracts"`
		PollInterval time.Duration     `yaml:"poll_interval"`
		Bootstrap    int               `yaml:"bootstrap"`
	} `yaml:"gateio"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			BatchTimeout time.Duration `yaml:"batch_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// Credentials are expected via env in any non-local deployment.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("COINBASE_KEY_NAME"); v != "" {
		c.Coinbase.KeyName = v
	}
	if v := os.Getenv("COINBASE_PRIVATE_KEY"); v != "" {
		// allow the PEM to arrive with escaped newlines
		c.Coinbase.PrivateKey = strings.ReplaceAll(v, "\\n", "\n")
	}
	if v := os.Getenv("INSTRUMENTS"); v != "" {
		c.Engine.Instruments = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Engine.Instruments) == 0 {
		return fmt.Errorf("engine.instruments cannot be empty")
	}
	if c.Engine.PrimaryInstrument == "" {
		return fmt.Errorf("engine.primary_instrument is required")
	}
	if !contains(c.Engine.Instruments, c.Engine.PrimaryInstrument) {
		return fmt.Errorf("engine.primary_instrument '%s' must be listed in engine.instruments", c.Engine.PrimaryInstrument)
	}
	if c.Engine.MomentumInstrument != "" && !contains(c.Engine.Instruments, c.Engine.MomentumInstrument) {
		return fmt.Errorf("engine.momentum_instrument '%s' must be listed in engine.instruments", c.Engine.MomentumInstrument)
	}
	if c.Coinbase.WebSocketURL == "" {
		return fmt.Errorf("coinbase.websocket_url is required")
	}
	if c.Coinbase.RestURL == "" {
		return fmt.Errorf("coinbase.rest_url is required")
	}
	if c.Gateio.BaseURL == "" {
		return fmt.Errorf("gateio.base_url is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
