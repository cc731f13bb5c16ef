// Package config provides configuration loading for CropCare.
// Supports YAML files, .env files, environment variables and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for CropCare.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	OCR           OCRConfig           `yaml:"ocr"`
	Cache         CacheConfig         `yaml:"cache"`
	Speech        SpeechConfig        `yaml:"speech"`
	Session       SessionConfig       `yaml:"session"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
}

// LLMConfig holds generative model settings.
type LLMConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	VisionModel    string        `yaml:"vision_model"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// OCRConfig holds PDF fallback and vision OCR settings.
type OCRConfig struct {
	DPI                 int           `yaml:"dpi"`
	JPEGQuality         int           `yaml:"jpeg_quality"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	Concurrency         int           `yaml:"concurrency"`
	NativeTextThreshold int           `yaml:"native_text_threshold"`
}

// CacheConfig holds OCR result cache settings.
type CacheConfig struct {
	Driver     string      `yaml:"driver"` // memory or redis
	MaxEntries int         `yaml:"max_entries"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// SpeechConfig holds text-to-speech settings.
type SpeechConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	ChunkSize       int           `yaml:"chunk_size"`
	DefaultLanguage string        `yaml:"default_language"`
	Timeout         time.Duration `yaml:"timeout"`
}

// SessionConfig holds in-memory session store settings.
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8501,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     5 * time.Minute,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   5 * time.Minute,
			GracefulShutdown: 10 * time.Second,
			MaxUploadBytes:   50 << 20,
		},
		LLM: LLMConfig{
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "google/gemini-2.5-flash-lite",
			VisionModel:    "google/gemini-2.5-flash-lite",
			Temperature:    0.7,
			MaxTokens:      1500,
			MaxRetries:     3,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     30 * time.Second,
		},
		OCR: OCRConfig{
			DPI:                 200,
			JPEGQuality:         90,
			CacheTTL:            time.Hour,
			Concurrency:         1,
			NativeTextThreshold: 20,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "cropcare:",
			},
		},
		Speech: SpeechConfig{
			Endpoint:        "https://translate.google.com/translate_tts",
			ChunkSize:       100,
			DefaultLanguage: "en",
			Timeout:         30 * time.Second,
		},
		Session: SessionConfig{
			TTL:             2 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "cropcare",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.OCR.DPI < 36 || c.OCR.DPI > 600 {
		return fmt.Errorf("ocr dpi must be between 36 and 600, got %d", c.OCR.DPI)
	}

	if c.OCR.JPEGQuality < 1 || c.OCR.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.OCR.JPEGQuality)
	}

	if c.OCR.Concurrency < 1 {
		return fmt.Errorf("ocr concurrency must be at least 1")
	}

	if c.OCR.NativeTextThreshold < 1 {
		return fmt.Errorf("ocr native_text_threshold must be at least 1")
	}

	if c.OCR.CacheTTL <= 0 {
		return fmt.Errorf("ocr cache_ttl must be positive")
	}

	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm max_tokens must be at least 1")
	}

	if c.Speech.ChunkSize < 10 {
		return fmt.Errorf("speech chunk_size must be at least 10")
	}

	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("LLM_VISION_MODEL"); v != "" {
		cfg.LLM.VisionModel = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("OCR_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OCR.Concurrency = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
