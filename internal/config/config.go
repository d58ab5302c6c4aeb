package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the runtime configuration of the job binary. Trading parameters
// arrive with each invocation event instead.
type Config struct {
	TradingBaseURL string        `yaml:"tradingBaseURL" json:"tradingBaseURL"`
	DataBaseURL    string        `yaml:"dataBaseURL" json:"dataBaseURL"`
	Feed           string        `yaml:"feed" json:"feed"`
	MaxRetries     int           `yaml:"maxRetries" json:"maxRetries"`
	RetryDelay     time.Duration `yaml:"retryDelay" json:"retryDelay"`
	RetryJitter    float64       `yaml:"retryJitter" json:"retryJitter"`
	DecisionsPath  string        `yaml:"decisionsPath" json:"decisionsPath"`
	JournalPath    string        `yaml:"journalPath" json:"journalPath"`
	CheckpointPath string        `yaml:"checkpointPath" json:"checkpointPath"`
	SecretsFile    string        `yaml:"secretsFile" json:"secretsFile"`
	PushgatewayURL string        `yaml:"pushgatewayURL" json:"pushgatewayURL"`
	MetricsAddr    string        `yaml:"metricsAddr" json:"metricsAddr"`
	LoopInterval   time.Duration `yaml:"loopInterval" json:"loopInterval"`
	LogLevel       string        `yaml:"logLevel" json:"logLevel"`
	LogFormat      string        `yaml:"logFormat" json:"logFormat"`
	APIKey         string        `yaml:"-" json:"-"`
	APISecret      string        `yaml:"-" json:"-"`
}

func Default() Config {
	return Config{
		TradingBaseURL: "https://paper-api.alpaca.markets",
		Feed:           "iex",
		MaxRetries:     3,
		DecisionsPath:  "decisions.ndjson",
		CheckpointPath: "checkpoint.json",
		LoopInterval:   time.Minute,
		LogLevel:       "info",
		LogFormat:      FormatText,
	}
}

// Load layers defaults, the optional config file at path, a .env file in the
// working directory, and the environment, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	loadDotEnvIfPresent(".env")
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.APIKey = os.Getenv("APCA_API_KEY_ID")
	cfg.APISecret = os.Getenv("APCA_API_SECRET_KEY")

	// Later entries win, so TRADEJOB_TRADING_BASE_URL overrides APCA_API_BASE_URL.
	vars := []struct {
		key    string
		target *string
	}{
		{"APCA_API_BASE_URL", &cfg.TradingBaseURL},
		{"TRADEJOB_TRADING_BASE_URL", &cfg.TradingBaseURL},
		{"TRADEJOB_DATA_BASE_URL", &cfg.DataBaseURL},
		{"TRADEJOB_FEED", &cfg.Feed},
		{"TRADEJOB_DECISIONS_PATH", &cfg.DecisionsPath},
		{"TRADEJOB_JOURNAL_PATH", &cfg.JournalPath},
		{"TRADEJOB_CHECKPOINT_PATH", &cfg.CheckpointPath},
		{"TRADEJOB_SECRETS_FILE", &cfg.SecretsFile},
		{"TRADEJOB_PUSHGATEWAY_URL", &cfg.PushgatewayURL},
		{"TRADEJOB_METRICS_ADDR", &cfg.MetricsAddr},
		{"TRADEJOB_LOG_LEVEL", &cfg.LogLevel},
		{"TRADEJOB_LOG_FORMAT", &cfg.LogFormat},
	}
	for _, v := range vars {
		if value := os.Getenv(v.key); value != "" {
			*v.target = value
		}
	}

	if v := os.Getenv("TRADEJOB_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRADEJOB_MAX_RETRIES: %w", err)
		}
		cfg.MaxRetries = n
	}
	if v := os.Getenv("TRADEJOB_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRADEJOB_RETRY_DELAY: %w", err)
		}
		cfg.RetryDelay = d
	}
	if v := os.Getenv("TRADEJOB_RETRY_JITTER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRADEJOB_RETRY_JITTER: %w", err)
		}
		cfg.RetryJitter = f
	}
	if v := os.Getenv("TRADEJOB_LOOP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRADEJOB_LOOP_INTERVAL: %w", err)
		}
		cfg.LoopInterval = d
	}
	return nil
}

func (c Config) Validate() error {
	if c.Feed != "iex" && c.Feed != "sip" {
		return fmt.Errorf("invalid feed: %s", c.Feed)
	}
	if c.TradingBaseURL == "" {
		return fmt.Errorf("tradingBaseURL is required")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("maxRetries must be >= 1")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retryDelay must be >= 0")
	}
	if c.RetryJitter < 0 || c.RetryJitter > 1 {
		return fmt.Errorf("retryJitter must be within [0, 1]")
	}
	if c.LoopInterval <= 0 {
		return fmt.Errorf("loopInterval must be > 0")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != FormatText && c.LogFormat != FormatJSON {
		return fmt.Errorf("invalid logFormat: %s", c.LogFormat)
	}
	return nil
}

// Logger builds the slog logger described by LogLevel and LogFormat.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(value))); err != nil {
		return level, fmt.Errorf("invalid logLevel: %s", value)
	}
	return level, nil
}
