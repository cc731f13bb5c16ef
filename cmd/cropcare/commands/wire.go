package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spherical/cropcare/internal/assistant"
	"github.com/spherical/cropcare/internal/cache"
	"github.com/spherical/cropcare/internal/config"
	"github.com/spherical/cropcare/internal/conversation"
	"github.com/spherical/cropcare/internal/extract"
	"github.com/spherical/cropcare/internal/llm"
	"github.com/spherical/cropcare/internal/observability"
	"github.com/spherical/cropcare/internal/ocr"
	"github.com/spherical/cropcare/internal/speech"
)

// app holds the wired components shared by all commands.
type app struct {
	logger    *observability.Logger
	cache     cache.Client
	extractor *extract.Extractor
	assistant *assistant.Client
	flow      *conversation.Flow
}

func newLogger(c *config.Config, format string) *observability.Logger {
	if format == "" {
		format = c.Observability.LogFormat
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       c.Observability.LogLevel,
		Format:      format,
		Output:      os.Stderr,
		ServiceName: c.Observability.ServiceName,
	})
}

func newCache(ctx context.Context, c *config.Config) (cache.Client, error) {
	switch c.Cache.Driver {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
			PoolSize: c.Cache.Redis.PoolSize,
			Prefix:   c.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return cache.NewMemoryClient(c.Cache.MaxEntries, c.Session.CleanupInterval), nil
	}
}

// buildApp wires the pipeline from configuration. logFormat overrides the
// configured format when non-empty.
func buildApp(ctx context.Context, c *config.Config, logFormat string) (*app, error) {
	logger := newLogger(c, logFormat)

	if c.LLM.APIKey == "" {
		// Plain text, DOCX and native PDF extraction still work without a key.
		logger.Warn().Msg("OPENROUTER_API_KEY is not set; model calls will fail")
	}

	store, err := newCache(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	client := llm.NewClient(llm.Config{
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		VisionModel: c.LLM.VisionModel,
		Retry: llm.RetryConfig{
			MaxRetries:     c.LLM.MaxRetries,
			InitialBackoff: c.LLM.InitialBackoff,
			MaxBackoff:     c.LLM.MaxBackoff,
		},
		Logger: logger,
	})

	recognizer := ocr.NewVisionRecognizer(client, store,
		ocr.WithTTL(c.OCR.CacheTTL),
		ocr.WithLogger(logger),
	)

	extractor := extract.New(recognizer, extract.Options{
		DPI:                 c.OCR.DPI,
		JPEGQuality:         c.OCR.JPEGQuality,
		Concurrency:         c.OCR.Concurrency,
		NativeTextThreshold: c.OCR.NativeTextThreshold,
	}, extract.WithLogger(logger))

	asst := assistant.New(client,
		assistant.WithGeneration(c.LLM.Temperature, c.LLM.MaxTokens),
		assistant.WithLogger(logger),
	)

	synth := speech.NewSynthesizer(speech.Config{
		Endpoint:        c.Speech.Endpoint,
		ChunkSize:       c.Speech.ChunkSize,
		DefaultLanguage: c.Speech.DefaultLanguage,
		Timeout:         c.Speech.Timeout,
		Logger:          logger,
	})

	return &app{
		logger:    logger,
		cache:     store,
		extractor: extractor,
		assistant: asst,
		flow:      conversation.New(extractor, asst, synth, conversation.WithLogger(logger)),
	}, nil
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close cache")
		}
	}
}
