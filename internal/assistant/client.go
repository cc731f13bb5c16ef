// Package assistant produces agricultural summaries, answers and image
// analyses through a generative model.
package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/observability"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1500
)

// Request is a single assistant call. A non-empty Image always selects
// image analysis regardless of Mode.
type Request struct {
	Mode     Mode
	Language string
	Document string
	Query    string
	Image    []byte
	// Stream receives partial replies when the generator can stream.
	// The caller must drain it until Respond returns.
	Stream chan<- string
}

// Client wraps a ResponseGenerator with the CropCare prompts.
type Client struct {
	generator   domain.ResponseGenerator
	temperature float64
	maxTokens   int
	logger      *observability.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithGeneration overrides temperature and token ceiling for text-only calls.
func WithGeneration(temperature float64, maxTokens int) Option {
	return func(c *Client) {
		if temperature > 0 {
			c.temperature = temperature
		}
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *observability.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an assistant client.
func New(generator domain.ResponseGenerator, opts ...Option) *Client {
	c := &Client{
		generator:   generator,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		logger:      observability.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("assistant")
	return c
}

// Respond runs a request. All failures are returned as external_call errors;
// converting them into user-facing text is left to the caller.
func (c *Client) Respond(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Language) == "" {
		return "", domain.ValidationError("language is required", nil)
	}

	var gen domain.GenerateRequest
	kind := string(req.Mode)
	if len(req.Image) > 0 {
		kind = "image"
		gen = domain.GenerateRequest{
			Instruction: ImageInstruction(req.Language),
			Image:       req.Image,
		}
	} else {
		gen = domain.GenerateRequest{
			Instruction: BuildPrompt(req.Mode, req.Language, req.Document, req.Query),
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		}
	}

	start := time.Now()
	out, err := c.generate(ctx, gen, req.Stream)
	if err != nil {
		c.logger.Error().Err(err).Str("mode", kind).Str("language", req.Language).Msg("Assistant call failed")
		if domain.IsType(err, domain.ErrorTypeExternalCall) {
			return "", err
		}
		return "", domain.ExternalCallError("Assistant call failed", err)
	}

	c.logger.Debug().
		Str("mode", kind).
		Str("language", req.Language).
		Int("response_chars", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("Assistant responded")
	return out, nil
}

func (c *Client) generate(ctx context.Context, gen domain.GenerateRequest, stream chan<- string) (string, error) {
	if stream != nil {
		if sg, ok := c.generator.(domain.StreamingGenerator); ok {
			return sg.GenerateStream(ctx, gen, stream)
		}
	}
	return c.generator.Generate(ctx, gen)
}

// AnalyzeImage describes an agricultural photo in the given language.
func (c *Client) AnalyzeImage(ctx context.Context, language string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", domain.ValidationError("image is empty", nil)
	}
	return c.Respond(ctx, Request{Language: language, Image: image})
}

// Summarize analyzes extracted document text.
func (c *Client) Summarize(ctx context.Context, language, document string) (string, error) {
	return c.Respond(ctx, Request{Mode: ModeSummary, Language: language, Document: document})
}

// AnswerDocument answers a question with the document as context. chunks
// may be nil.
func (c *Client) AnswerDocument(ctx context.Context, language, document, question string, chunks chan<- string) (string, error) {
	return c.Respond(ctx, Request{Mode: ModeChat, Language: language, Document: document, Query: question, Stream: chunks})
}

// AnswerGeneral answers a standalone farming question. chunks may be nil.
func (c *Client) AnswerGeneral(ctx context.Context, language, question string, chunks chan<- string) (string, error) {
	return c.Respond(ctx, Request{Mode: ModeGeneral, Language: language, Query: question, Stream: chunks})
}
