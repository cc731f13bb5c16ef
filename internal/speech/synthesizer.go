package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/observability"
	"github.com/spherical/cropcare/internal/session"
)

const (
	defaultEndpoint  = "https://translate.google.com/translate_tts"
	defaultChunkSize = 100
	userAgent        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Config configures a Synthesizer.
type Config struct {
	Endpoint        string
	ChunkSize       int
	DefaultLanguage string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Logger          *observability.Logger
}

// Synthesizer fetches MP3 speech from the Google Translate TTS endpoint.
type Synthesizer struct {
	endpoint    string
	chunkSize   int
	defaultLang string
	httpClient  *http.Client
	logger      *observability.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(cfg Config) *Synthesizer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = session.Languages[0].Code
	}
	if cfg.HTTPClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.DefaultLogger()
	}
	return &Synthesizer{
		endpoint:    cfg.Endpoint,
		chunkSize:   cfg.ChunkSize,
		defaultLang: cfg.DefaultLanguage,
		httpClient:  cfg.HTTPClient,
		logger:      cfg.Logger.WithComponent("speech"),
	}
}

// SynthesizeFor speaks text in a language given by display name.
func (s *Synthesizer) SynthesizeFor(ctx context.Context, text, languageName string) ([]byte, error) {
	return s.Synthesize(ctx, text, session.SpeechCode(languageName))
}

// Synthesize cleans text and returns concatenated MP3 audio for it.
func (s *Synthesizer) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil, domain.SynthesisError("nothing to speak after cleaning", nil)
	}
	if languageCode == "" {
		languageCode = s.defaultLang
	}

	chunks := splitChunks(cleaned, s.chunkSize)
	var audio bytes.Buffer
	start := time.Now()

	for i, chunk := range chunks {
		part, err := s.fetch(ctx, chunk, languageCode, i, len(chunks))
		if err != nil {
			s.logger.Error().Err(err).Int("chunk", i+1).Int("chunks", len(chunks)).Msg("Speech synthesis failed")
			return nil, domain.SynthesisError(fmt.Sprintf("Failed to synthesize chunk %d of %d", i+1, len(chunks)), err)
		}
		audio.Write(part)
	}

	s.logger.Debug().
		Str("lang", languageCode).
		Int("chunks", len(chunks)).
		Int("audio_bytes", audio.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Synthesized speech")
	return audio.Bytes(), nil
}

func (s *Synthesizer) fetch(ctx context.Context, chunk, lang string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", chunk)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", "https://translate.google.com/")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("TTS endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

// splitChunks breaks text into pieces of at most max runes, preferring to cut
// after sentence punctuation, then at whitespace, and only then mid-word.
func splitChunks(text string, max int) []string {
	var chunks []string
	runes := []rune(strings.TrimSpace(text))

	for len(runes) > 0 {
		if len(runes) <= max {
			chunks = appendChunk(chunks, string(runes))
			break
		}

		cut := lastIndexFunc(runes[:max], isSentenceEnd)
		if cut < 0 {
			cut = lastIndexFunc(runes[:max], unicode.IsSpace)
		}
		if cut <= 0 {
			cut = max - 1
		}

		chunks = appendChunk(chunks, string(runes[:cut+1]))
		runes = []rune(strings.TrimLeftFunc(string(runes[cut+1:]), unicode.IsSpace))
	}
	return chunks
}

func appendChunk(chunks []string, c string) []string {
	if c = strings.TrimSpace(c); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':', ',', '\n', '।', '॥', '、', '。':
		return true
	}
	return false
}

func lastIndexFunc(runes []rune, f func(rune) bool) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if f(runes[i]) {
			return i
		}
	}
	return -1
}
