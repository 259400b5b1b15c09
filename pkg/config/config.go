package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		PricesTopic  string   `yaml:"prices_topic" default:"coinsage.prices"`
		NewsTopic    string   `yaml:"news_topic" default:"coinsage.news"`
		LogsTopic    string   `yaml:"logs_topic" default:"coinsage.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"coinsage-ingest"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"coinsage"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN          string        `yaml:"dsn"`
		MaxOpenConns int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns int           `yaml:"max_idle_conns" default:"5"`
		ConnLifetime time.Duration `yaml:"conn_lifetime" default:"30m"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Binance struct {
		RESTURL      string        `yaml:"rest_url" default:"https://api.binance.com"`
		WebSocketURL string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443/ws"`
		Symbols      []string      `yaml:"symbols"`
		PollInterval time.Duration `yaml:"poll_interval" default:"1m"`
		StreamPrices bool          `yaml:"stream_prices"`
		RateLimit    float64       `yaml:"rate_limit" default:"10"` // requests per second
		RateBurst    int           `yaml:"rate_burst" default:"20"`
	} `yaml:"binance"`
	CryptoPanic struct {
		APIKey       string        `yaml:"api_key"`
		BaseURL      string        `yaml:"base_url" default:"https://cryptopanic.com/api/v1"`
		Currencies   []string      `yaml:"currencies"`
		PollInterval time.Duration `yaml:"poll_interval" default:"5m"`
		PageLimit    int           `yaml:"page_limit" default:"50"`
	} `yaml:"cryptopanic"`
	Pipeline struct {
		Interval      time.Duration `yaml:"interval" default:"1h"`
		PriceLimit    int           `yaml:"price_limit" default:"5000"`
		NewsLimit     int           `yaml:"news_limit" default:"1000"`
		NewsBucket    time.Duration `yaml:"news_bucket" default:"1h"`
		Normalization string        `yaml:"normalization" default:"zscore"`
		Lags          []int         `yaml:"lags"`
	} `yaml:"pipeline"`
	Models struct {
		Dir          string        `yaml:"dir" default:"./models"`
		MinRows      int           `yaml:"min_rows" default:"30"`
		MinFeatures  int           `yaml:"min_features" default:"3"`
		TargetShift  int           `yaml:"target_shift" default:"24"`
		TestFraction float64       `yaml:"test_fraction" default:"0.2"`
		Seed         int64         `yaml:"seed" default:"42"`
		Epochs       int           `yaml:"epochs" default:"300"`
		LearningRate float64       `yaml:"learning_rate" default:"0.05"`
		QueueRetrain bool          `yaml:"queue_retrain"`
		JobTimeout   time.Duration `yaml:"job_timeout" default:"2m"`
	} `yaml:"models"`
}

// Load reads a YAML configuration file, fills defaults and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CRYPTOPANIC_API_KEY"); v != "" {
		c.CryptoPanic.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Binance.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
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
	if len(c.Binance.Symbols) == 0 {
		return fmt.Errorf("binance.symbols cannot be empty")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	switch c.Pipeline.Normalization {
	case "minmax", "zscore":
	default:
		return fmt.Errorf("pipeline.normalization must be 'minmax' or 'zscore', got '%s'", c.Pipeline.Normalization)
	}
	if c.Models.TargetShift <= 0 {
		return fmt.Errorf("models.target_shift must be positive")
	}
	if c.Models.TestFraction <= 0 || c.Models.TestFraction >= 1 {
		return fmt.Errorf("models.test_fraction must be in (0, 1)")
	}
	return nil
}
