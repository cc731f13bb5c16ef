package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGenerator struct {
	reqs  []domain.GenerateRequest
	reply string
	err   error
}

func (g *recordingGenerator) Generate(_ context.Context, req domain.GenerateRequest) (string, error) {
	g.reqs = append(g.reqs, req)
	return g.reply, g.err
}

type streamingGenerator struct {
	recordingGenerator
	chunks   []string
	streamed int
}

func (g *streamingGenerator) GenerateStream(ctx context.Context, req domain.GenerateRequest, chunkCh chan<- string) (string, error) {
	g.streamed++
	g.reqs = append(g.reqs, req)
	for _, c := range g.chunks {
		chunkCh <- c
	}
	return g.reply, g.err
}

func newClient(g domain.ResponseGenerator) *Client {
	return New(g, WithLogger(observability.Nop()))
}

func TestBuildPrompt_Summary(t *testing.T) {
	got := BuildPrompt(ModeSummary, "English", "Crop yield fell 12% due to drought.", "")
	want := "You are CropCare 🌾, an agricultural document explainer. ONLY analyze agricultural documents.\n" +
		"Respond ONLY in English.\n" +
		"CRITICAL: Provide only agriculture-related information.\n" +
		"Analyze this document in English:\n" +
		"- Summary, Key findings, Important recommendations, and Risks\n" +
		"Document:\n" +
		"Crop yield fell 12% due to drought.\n"
	assert.Equal(t, want, got)
}

func TestBuildPrompt_Chat(t *testing.T) {
	got := BuildPrompt(ModeChat, "हिंदी", "doc body", "When to irrigate?")
	assert.Contains(t, got, "an agricultural assistant. ONLY answer agriculture questions.")
	assert.Contains(t, got, "Respond ONLY in हिंदी.")
	assert.Contains(t, got, "Document context:\ndoc body\nUser question: When to irrigate?\n")
}

func TestBuildPrompt_GeneralAndUnknownModes(t *testing.T) {
	general := BuildPrompt(ModeGeneral, "English", "ignored doc", "Best time to plant corn?")
	assert.Contains(t, general, "an agricultural guide. ONLY provide farming information.")
	assert.Contains(t, general, "User question: Best time to plant corn?")
	assert.NotContains(t, general, "ignored doc")

	unknown := BuildPrompt(Mode("weather"), "English", "ignored doc", "Rain?")
	assert.Contains(t, unknown, "an agricultural document explainer")
	assert.Contains(t, unknown, "User question: Rain?")
	assert.NotContains(t, unknown, "ignored doc")
}

func TestRespond_TextUsesGenerationLimits(t *testing.T) {
	g := &recordingGenerator{reply: "summary"}
	c := newClient(g)

	out, err := c.Summarize(context.Background(), "English", "Crop yield fell 12% due to drought.")
	require.NoError(t, err)
	assert.Equal(t, "summary", out)
	require.Len(t, g.reqs, 1)
	assert.InDelta(t, 0.7, g.reqs[0].Temperature, 1e-9)
	assert.Equal(t, 1500, g.reqs[0].MaxTokens)
	assert.Empty(t, g.reqs[0].Image)
	assert.Contains(t, g.reqs[0].Instruction, "Crop yield fell 12% due to drought.")
}

func TestRespond_ImageOverridesMode(t *testing.T) {
	g := &recordingGenerator{reply: "leaf blight"}
	c := newClient(g)

	out, err := c.Respond(context.Background(), Request{Mode: ModeChat, Language: "తెలుగు", Query: "q", Image: []byte{0xff, 0xd8}})
	require.NoError(t, err)
	assert.Equal(t, "leaf blight", out)
	assert.Equal(t, "You are CropCare. Analyze this agricultural image in తెలుగు: identification, problems, solutions, and prevention.", g.reqs[0].Instruction)
	assert.Equal(t, []byte{0xff, 0xd8}, g.reqs[0].Image)
	assert.Zero(t, g.reqs[0].MaxTokens)
}

func TestRespond_ErrorsAreClassified(t *testing.T) {
	g := &recordingGenerator{err: errors.New("connection reset")}
	c := newClient(g)

	_, err := c.AnswerGeneral(context.Background(), "English", "q", nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExternalCall))

	_, err = c.AnalyzeImage(context.Background(), "English", []byte{1})
	assert.True(t, domain.IsType(err, domain.ErrorTypeExternalCall))
}

func TestRespond_Validation(t *testing.T) {
	g := &recordingGenerator{}
	c := newClient(g)

	_, err := c.AnswerGeneral(context.Background(), "", "q", nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))

	_, err = c.AnalyzeImage(context.Background(), "English", nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
	assert.Empty(t, g.reqs)
}

func TestWithGeneration(t *testing.T) {
	g := &recordingGenerator{}
	c := New(g, WithGeneration(0.2, 400), WithLogger(observability.Nop()))

	_, err := c.AnswerDocument(context.Background(), "English", "doc", "q", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, g.reqs[0].Temperature, 1e-9)
	assert.Equal(t, 400, g.reqs[0].MaxTokens)
}

func TestAnswerGeneral_StreamsWhenGeneratorCan(t *testing.T) {
	g := &streamingGenerator{
		recordingGenerator: recordingGenerator{reply: "Sow maize after the first rains."},
		chunks:             []string{"Sow maize ", "after the first rains."},
	}
	c := newClient(g)

	chunks := make(chan string, 4)
	out, err := c.AnswerGeneral(context.Background(), "English", "When to sow maize?", chunks)
	require.NoError(t, err)
	close(chunks)

	var got []string
	for ch := range chunks {
		got = append(got, ch)
	}
	assert.Equal(t, "Sow maize after the first rains.", out)
	assert.Equal(t, []string{"Sow maize ", "after the first rains."}, got)
	assert.Equal(t, 1, g.streamed)

	_, err = c.AnswerGeneral(context.Background(), "English", "q", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, g.streamed, "nil chunks must use the plain call")
}

func TestAnswerDocument_StreamFallsBackForPlainGenerator(t *testing.T) {
	g := &recordingGenerator{reply: "Apply potash."}
	c := newClient(g)

	chunks := make(chan string, 1)
	out, err := c.AnswerDocument(context.Background(), "English", "doc", "q", chunks)
	require.NoError(t, err)
	assert.Equal(t, "Apply potash.", out)
	assert.Empty(t, chunks)
}
