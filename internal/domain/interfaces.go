package domain

import "context"

// TextRecognizer turns an image into the text it contains.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, image []byte) (string, error)
}

// GenerateRequest is a single prompt sent to a generative model.
type GenerateRequest struct {
	Instruction string
	Image       []byte // optional; sent as an image part when present
	Temperature float64
	MaxTokens   int
}

// ResponseGenerator produces a natural-language response for a prompt.
type ResponseGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// StreamingGenerator is a ResponseGenerator that forwards partial output
// to chunkCh as it arrives. chunkCh is never closed by the generator.
type StreamingGenerator interface {
	ResponseGenerator
	GenerateStream(ctx context.Context, req GenerateRequest, chunkCh chan<- string) (string, error)
}

// Synthesizer converts text into playable audio for a two-letter language code.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)
}
