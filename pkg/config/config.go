package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	HistoryBackendMemory   = "memory"
	HistoryBackendPostgres = "postgres"
)

// Application settings
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Cache    CacheConfig    `yaml:"cache"`
	History  HistoryConfig  `yaml:"history"`
	Answer   AnswerConfig   `yaml:"answer"`
}

// Server settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

type PipelineConfig struct {
	GranularThreshold int `yaml:"granular_threshold"`
	DefaultTopN       int `yaml:"default_top_n"`
	HistoryTurns      int `yaml:"history_turns"`
}

// worksheet source API
type SheetsConfig struct {
	APIURL      string        `yaml:"api_url"`
	SourceIDs   []string      `yaml:"source_ids"`
	Timeout     time.Duration `yaml:"timeout"`
	RateLimit   float64       `yaml:"rate_limit"`
	Burst       int           `yaml:"burst"`
	Concurrency int           `yaml:"concurrency"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPassword string        `yaml:"redis_password"`
	RedisPrefix   string        `yaml:"redis_prefix"`
}

type HistoryConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
}

// answer generator gateway
type AnswerConfig struct {
	URL     string        `yaml:"url"`
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			RequestTimeout:  60 * time.Second,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Pipeline: PipelineConfig{
			GranularThreshold: 5000,
			DefaultTopN:       5,
			HistoryTurns:      6,
		},
		Sheets: SheetsConfig{
			Timeout:     30 * time.Second,
			RateLimit:   10,
			Burst:       5,
			Concurrency: 4,
		},
		Cache: CacheConfig{
			Backend:     CacheBackendMemory,
			TTL:         5 * time.Minute,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "adsinsight:rows:",
		},
		History: HistoryConfig{
			Backend: HistoryBackendMemory,
			Table:   "chat_messages",
		},
		Answer: AnswerConfig{
			Timeout: 60 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE when set, and finally environment variables.
func Load() (*Config, error) {
	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.RequestTimeout = getDurationEnv("REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.ReadTimeout = getDurationEnv("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.AllowedOrigins = getListEnv("ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)

	c.Pipeline.GranularThreshold = getIntEnv("GRANULAR_THRESHOLD", c.Pipeline.GranularThreshold)
	c.Pipeline.DefaultTopN = getIntEnv("DEFAULT_TOP_N", c.Pipeline.DefaultTopN)
	c.Pipeline.HistoryTurns = getIntEnv("HISTORY_TURNS", c.Pipeline.HistoryTurns)

	c.Sheets.APIURL = getEnv("SHEETS_API_URL", c.Sheets.APIURL)
	c.Sheets.SourceIDs = getListEnv("SHEET_SOURCE_IDS", c.Sheets.SourceIDs)
	c.Sheets.Timeout = getDurationEnv("SHEETS_TIMEOUT", c.Sheets.Timeout)
	c.Sheets.RateLimit = getFloatEnv("SHEETS_RATE_LIMIT", c.Sheets.RateLimit)
	c.Sheets.Burst = getIntEnv("SHEETS_BURST", c.Sheets.Burst)
	c.Sheets.Concurrency = getIntEnv("SHEETS_CONCURRENCY", c.Sheets.Concurrency)

	c.Cache.Backend = strings.ToLower(getEnv("CACHE_BACKEND", c.Cache.Backend))
	c.Cache.TTL = getDurationEnv("CACHE_TTL", c.Cache.TTL)
	c.Cache.RedisAddr = getEnv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisDB = getIntEnv("REDIS_DB", c.Cache.RedisDB)
	c.Cache.RedisPassword = getEnv("REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisPrefix = getEnv("REDIS_PREFIX", c.Cache.RedisPrefix)

	c.History.Backend = strings.ToLower(getEnv("HISTORY_BACKEND", c.History.Backend))
	c.History.DSN = getEnv("DATABASE_URL", c.History.DSN)
	c.History.Table = getEnv("HISTORY_TABLE", c.History.Table)

	c.Answer.URL = getEnv("ANSWER_API_URL", c.Answer.URL)
	c.Answer.Secret = getEnv("ANSWER_API_SECRET", c.Answer.Secret)
	c.Answer.Timeout = getDurationEnv("ANSWER_TIMEOUT", c.Answer.Timeout)
}

// Validate rejects unknown backends and a postgres history without a DSN.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	switch c.History.Backend {
	case HistoryBackendMemory:
	case HistoryBackendPostgres:
		if c.History.DSN == "" {
			return fmt.Errorf("history backend %q requires DATABASE_URL", c.History.Backend)
		}
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// comma separated, blanks dropped
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
