// Package ocr recognizes text in images through a vision model, caching
// results by exact image content.
package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/spherical/cropcare/internal/cache"
	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/observability"
)

// Instruction is sent with every image.
const Instruction = "Extract all text from this image. Only return the raw text content, with no additional commentary or formatting."

const (
	defaultTTL           = time.Hour
	defaultFlightTimeout = 5 * time.Minute
)

// VisionRecognizer implements domain.TextRecognizer over a vision-capable generator.
type VisionRecognizer struct {
	generator domain.ResponseGenerator
	cache     cache.Client
	ttl       time.Duration
	timeout   time.Duration
	group     singleflight.Group
	logger    *observability.Logger
}

// Option customizes a VisionRecognizer.
type Option func(*VisionRecognizer)

// WithTTL sets how long recognized text stays cached.
func WithTTL(ttl time.Duration) Option {
	return func(r *VisionRecognizer) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithFlightTimeout bounds a shared model call. The call is detached from
// the caller that started it, so this is its only deadline.
func WithFlightTimeout(d time.Duration) Option {
	return func(r *VisionRecognizer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *observability.Logger) Option {
	return func(r *VisionRecognizer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewVisionRecognizer creates a recognizer. A nil store disables caching.
func NewVisionRecognizer(generator domain.ResponseGenerator, store cache.Client, opts ...Option) *VisionRecognizer {
	r := &VisionRecognizer{
		generator: generator,
		cache:     store,
		ttl:       defaultTTL,
		timeout:   defaultFlightTimeout,
		logger:    observability.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("ocr")
	return r
}

// CacheKey returns the content-addressed key for an image.
func CacheKey(image []byte) string {
	sum := sha256.Sum256(image)
	return cache.Key("ocr", hex.EncodeToString(sum[:]))
}

// RecognizeText returns the trimmed text found in image. Identical bytes
// within the TTL are served from cache, and concurrent identical requests
// share a single external call. Failures are never cached.
func (r *VisionRecognizer) RecognizeText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", domain.OCRError("image is empty", nil)
	}

	key := CacheKey(image)
	if text, ok := r.lookup(ctx, key); ok {
		return text, nil
	}

	// A waiter that gives up must not fail the others sharing the call.
	ch := r.group.DoChan(key, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.recognize(flightCtx, key, image)
	})

	select {
	case <-ctx.Done():
		return "", domain.OCRError("Failed to recognize text", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			r.logger.Error().Err(res.Err).Bool("shared", res.Shared).Msg("OCR request failed")
			return "", domain.OCRError("Failed to recognize text", res.Err)
		}
		return res.Val.(string), nil
	}
}

func (r *VisionRecognizer) recognize(ctx context.Context, key string, image []byte) (string, error) {
	// Another flight may have filled the cache while this one waited.
	if text, ok := r.lookup(ctx, key); ok {
		return text, nil
	}

	start := time.Now()
	raw, err := r.generator.Generate(ctx, domain.GenerateRequest{
		Instruction: Instruction,
		Image:       image,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(raw)

	r.logger.Debug().
		Int("image_bytes", len(image)).
		Int("text_chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Recognized image text")

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, []byte(text), r.ttl); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to cache OCR result")
		}
	}
	return text, nil
}

func (r *VisionRecognizer) lookup(ctx context.Context, key string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn().Err(err).Msg("OCR cache lookup failed")
		}
		return "", false
	}
	return string(data), true
}
