package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/observability"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "google/gemini-2.5-flash-lite"
)

// Client handles communication with an OpenRouter-compatible chat completions API.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	visionModel string
	retry       RetryConfig
	httpClient  *http.Client
	logger      *observability.Logger
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	VisionModel string // used for requests carrying an image; falls back to Model
	Retry       RetryConfig
	HTTPClient  *http.Client
	Logger      *observability.Logger
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL string `json:"url"`
}

// Request represents the API request structure
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Response represents the API response structure
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice
type Choice struct {
	Delta        Delta  `json:"delta"`
	Message      Delta  `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Delta represents a message delta in streaming response
type Delta struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// NewClient creates a new LLM client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialBackoff == 0 {
		cfg.Retry = *DefaultRetryConfig()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.DefaultLogger()
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		retry:       cfg.Retry,
		httpClient:  cfg.HTTPClient,
		logger:      cfg.Logger.WithComponent("llm"),
	}
}

// Generate sends a prompt and returns the complete response text.
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	return c.GenerateStream(ctx, req, nil)
}

// GenerateStream sends a prompt and returns the complete response text. When
// chunkCh is non-nil every streamed chunk is also forwarded to it.
func (c *Client) GenerateStream(ctx context.Context, req domain.GenerateRequest, chunkCh chan<- string) (string, error) {
	apiReq, err := c.buildRequest(req)
	if err != nil {
		return "", domain.ExternalCallError("Failed to build request", err)
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", domain.ExternalCallError("Failed to marshal request", err)
	}

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("HTTP-Referer", "https://github.com/spherical/cropcare")
		httpReq.Header.Set("X-Title", "CropCare")

		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		return "", domain.ExternalCallError("Failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.ExternalCallError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(bodyBytes)), nil)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return c.parseJSON(ctx, resp.Body, chunkCh)
	}
	return c.parseStream(ctx, resp.Body, chunkCh)
}

// buildRequest constructs the API request, attaching the image as a data URL.
func (c *Client) buildRequest(req domain.GenerateRequest) (*Request, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, fmt.Errorf("instruction is empty")
	}

	parts := []ContentPart{{Type: "text", Text: req.Instruction}}
	model := c.model

	if len(req.Image) > 0 {
		model = c.visionModel
		parts = append(parts, ContentPart{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: imageDataURL(req.Image)},
		})
	}

	apiReq := &Request{
		Model:     model,
		Messages:  []Message{{Role: "user", Content: parts}},
		Stream:    true,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		apiReq.Temperature = &t
	}
	return apiReq, nil
}

// imageDataURL encodes raw image bytes as a base64 data URL. Unknown content
// is labelled as JPEG, which is what rasterized pages are encoded as.
func imageDataURL(image []byte) string {
	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// parseStream parses the Server-Sent Events stream
func (c *Client) parseStream(ctx context.Context, body io.Reader, chunkCh chan<- string) (string, error) {
	var out strings.Builder
	parser := NewStreamParser(body)
	for {
		chunk, err := parser.Next()
		if err != nil {
			return "", domain.ExternalCallError("Failed to parse stream", err)
		}
		if chunk.Content != "" {
			out.WriteString(chunk.Content)
			if err := forward(ctx, chunkCh, chunk.Content); err != nil {
				return "", err
			}
		}
		if chunk.Done {
			break
		}
	}
	return out.String(), nil
}

// parseJSON handles providers that ignore the stream flag and answer with a single body.
func (c *Client) parseJSON(ctx context.Context, body io.Reader, chunkCh chan<- string) (string, error) {
	var resp Response
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", domain.ExternalCallError("Failed to decode response", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.ExternalCallError("Response contained no choices", nil)
	}
	content := resp.Choices[0].Message.Content
	if content != "" {
		if err := forward(ctx, chunkCh, content); err != nil {
			return "", err
		}
	}
	return content, nil
}

func forward(ctx context.Context, chunkCh chan<- string, chunk string) error {
	if chunkCh == nil {
		return nil
	}
	select {
	case chunkCh <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
