// Package conversation drives a session through language selection,
// document analysis and chat.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/observability"
	"github.com/spherical/cropcare/internal/session"
)

// State is the position of a session in the conversation.
type State string

const (
	StateLanguageUnselected State = "language_unselected"
	StateLanguageSelected   State = "language_selected"
)

// StateOf derives the conversation state of a session.
func StateOf(s *session.Session) State {
	if s.LanguageSelected {
		return StateLanguageSelected
	}
	return StateLanguageUnselected
}

// Extractor turns an upload into text.
type Extractor interface {
	Extract(ctx context.Context, artifact domain.Artifact, progress chan<- domain.ProgressEvent) (domain.ExtractionResult, error)
}

// Assistant answers in the session language.
type Assistant interface {
	AnalyzeImage(ctx context.Context, language string, image []byte) (string, error)
	Summarize(ctx context.Context, language, document string) (string, error)
	AnswerDocument(ctx context.Context, language, document, question string, chunks chan<- string) (string, error)
	AnswerGeneral(ctx context.Context, language, question string, chunks chan<- string) (string, error)
}

// UploadOutcome reports what an upload changed.
type UploadOutcome struct {
	Kind         domain.FileKind         `json:"kind"`
	Summary      string                  `json:"summary"`
	DocumentText string                  `json:"document_text"`
	Extraction   domain.ExtractionResult `json:"-"`
	Notices      []Notice                `json:"notices"`
}

// ChatOutcome reports a chat turn. Failed replies are still appended to the
// transcript as an inline error.
type ChatOutcome struct {
	Reply   string   `json:"reply"`
	Failed  bool     `json:"failed"`
	Notices []Notice `json:"notices"`
}

// AudioOutcome carries synthesized speech. Audio is nil when synthesis failed.
type AudioOutcome struct {
	Text    string   `json:"text"`
	Audio   []byte   `json:"-"`
	Notices []Notice `json:"notices"`
}

// Flow applies user actions to a session. It is the single place where
// external failures are caught and turned into notices; only misuse
// (wrong state, bad input) is returned as an error.
type Flow struct {
	extractor   Extractor
	assistant   Assistant
	synthesizer domain.Synthesizer
	logger      *observability.Logger
}

// Option customizes a Flow.
type Option func(*Flow)

// WithLogger sets the logger.
func WithLogger(l *observability.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Flow.
func New(extractor Extractor, assistant Assistant, synthesizer domain.Synthesizer, opts ...Option) *Flow {
	f := &Flow{
		extractor:   extractor,
		assistant:   assistant,
		synthesizer: synthesizer,
		logger:      observability.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.WithComponent("conversation")
	return f
}

// SelectLanguage moves a session from LanguageUnselected to LanguageSelected.
func (f *Flow) SelectLanguage(sess *session.Session, name string) error {
	if StateOf(sess) != StateLanguageUnselected {
		return domain.StateError("language already selected; change language first")
	}
	lang, ok := session.LookupLanguage(name)
	if !ok {
		return domain.ValidationError("unsupported language: "+name, nil)
	}

	sess.Language = lang.Name
	sess.LanguageSelected = true
	sess.Sector = session.DefaultSector
	sess.SectorSelected = true
	sess.Touch()

	f.logger.WithSession(sess.ID).Info().Str("language", lang.Name).Msg("Language selected")
	return nil
}

// ChangeLanguage resets every session field and returns to LanguageUnselected.
func (f *Flow) ChangeLanguage(sess *session.Session) {
	sess.Reset()
	f.logger.WithSession(sess.ID).Info().Msg("Session reset for language change")
}

// Upload extracts and analyzes a file. Images get both an image analysis
// (stored as the summary) and an OCR pass (stored as document text).
// Documents are summarized only when text was found. Unsupported types
// leave the session untouched.
func (f *Flow) Upload(ctx context.Context, sess *session.Session, artifact domain.Artifact, progress chan<- domain.ProgressEvent) (UploadOutcome, error) {
	if err := requireLanguage(sess); err != nil {
		return UploadOutcome{}, err
	}

	kind, err := artifact.Kind()
	if err != nil {
		return UploadOutcome{Notices: []Notice{failure(CodeUnsupportedFileType, MsgUnsupportedType)}}, err
	}

	logger := f.logger.WithSession(sess.ID).WithOperation("upload")
	start := time.Now()
	out := UploadOutcome{Kind: kind}

	if kind == domain.FileKindImage {
		summary, err := f.assistant.AnalyzeImage(ctx, sess.Language, artifact.Data)
		if err != nil {
			logger.Warn().Err(err).Msg("Image analysis failed")
			summary = msgImageErrorPrefix + err.Error()
			out.Notices = append(out.Notices, failure(CodeAssistantFailed, summary))
		}
		sess.Summary = summary

		res, err := f.extractor.Extract(ctx, artifact, progress)
		out.Extraction = res
		if err != nil {
			logger.Warn().Err(err).Msg("Image text extraction failed")
			out.Notices = append(out.Notices, extractionNotice(err))
		}
		sess.DocumentText = res.Text
	} else {
		res, err := f.extractor.Extract(ctx, artifact, progress)
		out.Extraction = res
		if err != nil {
			logger.Warn().Err(err).Msg("Document extraction failed")
			out.Notices = append(out.Notices, extractionNotice(err))
		}
		if res.Method == domain.MethodPDFOCR {
			out.Notices = append(out.Notices, info(CodeOCRFallback, fmt.Sprintf(msgOCRFallback, res.Pages)))
		}

		if res.Text == "" {
			out.Notices = append(out.Notices, warning(CodeNoText, MsgNoText))
		} else {
			summary, err := f.assistant.Summarize(ctx, sess.Language, res.Text)
			if err != nil {
				// The previous document stays active so its chat remains consistent.
				logger.Warn().Err(err).Msg("Summary generation failed")
				out.Notices = append(out.Notices, failure(CodeAssistantFailed, msgReplyErrorPrefix+err.Error()))
			} else {
				sess.DocumentText = res.Text
				sess.Summary = summary
			}
		}
	}

	sess.LastUploadName = artifact.Name
	sess.Touch()

	out.Summary = sess.Summary
	out.DocumentText = sess.DocumentText

	logger.Info().
		Str("file", artifact.Name).
		Str("kind", string(kind)).
		Int("notices", len(out.Notices)).
		Dur("elapsed", time.Since(start)).
		Msg("Upload processed")
	return out, nil
}

// AskDocument answers a question about the analyzed document. It requires
// a summary to exist.
func (f *Flow) AskDocument(ctx context.Context, sess *session.Session, question string) (ChatOutcome, error) {
	return f.AskDocumentStream(ctx, sess, question, nil)
}

// AskDocumentStream is AskDocument with partial replies forwarded to chunks.
// The caller must drain chunks until it returns.
func (f *Flow) AskDocumentStream(ctx context.Context, sess *session.Session, question string, chunks chan<- string) (ChatOutcome, error) {
	if err := requireLanguage(sess); err != nil {
		return ChatOutcome{}, err
	}
	if !sess.HasSummary() {
		return ChatOutcome{}, domain.StateError("upload a document before asking about it")
	}
	question, err := normalizeQuestion(question)
	if err != nil {
		return ChatOutcome{}, err
	}

	sess.DocumentChat = append(sess.DocumentChat, session.Message{Role: session.RoleUser, Content: question})
	reply, err := f.assistant.AnswerDocument(ctx, sess.Language, sess.DocumentText, question, chunks)
	out := f.finishTurn(sess, "document_chat", reply, err)
	sess.DocumentChat = append(sess.DocumentChat, session.Message{Role: session.RoleAssistant, Content: out.Reply})
	sess.Touch()
	return out, nil
}

// AskGeneral answers a standalone farming question. Document state is never touched.
func (f *Flow) AskGeneral(ctx context.Context, sess *session.Session, question string) (ChatOutcome, error) {
	return f.AskGeneralStream(ctx, sess, question, nil)
}

// AskGeneralStream is AskGeneral with partial replies forwarded to chunks.
func (f *Flow) AskGeneralStream(ctx context.Context, sess *session.Session, question string, chunks chan<- string) (ChatOutcome, error) {
	if err := requireLanguage(sess); err != nil {
		return ChatOutcome{}, err
	}
	question, err := normalizeQuestion(question)
	if err != nil {
		return ChatOutcome{}, err
	}

	sess.GeneralChat = append(sess.GeneralChat, session.Message{Role: session.RoleUser, Content: question})
	reply, err := f.assistant.AnswerGeneral(ctx, sess.Language, question, chunks)
	out := f.finishTurn(sess, "general_chat", reply, err)
	sess.GeneralChat = append(sess.GeneralChat, session.Message{Role: session.RoleAssistant, Content: out.Reply})
	sess.Touch()
	return out, nil
}

func (f *Flow) finishTurn(sess *session.Session, op, reply string, err error) ChatOutcome {
	if err == nil {
		return ChatOutcome{Reply: reply}
	}
	f.logger.WithSession(sess.ID).WithOperation(op).Warn().Err(err).Msg("Assistant reply failed")
	msg := msgReplyErrorPrefix + err.Error()
	return ChatOutcome{
		Reply:   msg,
		Failed:  true,
		Notices: []Notice{failure(CodeAssistantFailed, msg)},
	}
}

// SpeakSummary synthesizes the current summary in the session language.
func (f *Flow) SpeakSummary(ctx context.Context, sess *session.Session) (AudioOutcome, error) {
	if err := requireLanguage(sess); err != nil {
		return AudioOutcome{}, err
	}
	if !sess.HasSummary() {
		return AudioOutcome{}, domain.StateError("there is no summary to read aloud")
	}
	return f.Speak(ctx, sess, sess.Summary), nil
}

// Speak synthesizes arbitrary text in the session language. Failures are
// reported as a notice and produce no audio.
func (f *Flow) Speak(ctx context.Context, sess *session.Session, text string) AudioOutcome {
	out := AudioOutcome{Text: text}
	audio, err := f.synthesizer.Synthesize(ctx, text, session.SpeechCode(sess.Language))
	if err != nil {
		f.logger.WithSession(sess.ID).Warn().Err(err).Msg("Speech synthesis failed")
		out.Notices = append(out.Notices, warning(CodeSynthesisFailed, "TTS generation failed: "+err.Error()))
		return out
	}
	out.Audio = audio
	return out
}

// Examples returns suggested document and general questions for the session language.
func Examples(sess *session.Session) (document, general []string) {
	return session.ExampleDocumentQuestions(sess.Language), session.ExampleGeneralQuestions(sess.Language)
}

func requireLanguage(sess *session.Session) error {
	if StateOf(sess) != StateLanguageSelected {
		return domain.StateError("select a language first")
	}
	return nil
}

func normalizeQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", domain.ValidationError("question is empty", nil)
	}
	return q, nil
}

func extractionNotice(err error) Notice {
	if domain.IsType(err, domain.ErrorTypeOCR) {
		return warning(CodeOCRFailed, err.Error())
	}
	return warning(CodeExtractionFailed, err.Error())
}
