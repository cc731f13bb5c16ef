// Package extract turns uploaded artifacts into plain text.
package extract

import (
	"context"
	"time"

	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/observability"
	"github.com/spherical/cropcare/internal/pdf"
)

// PageBreak separates OCR text of consecutive PDF pages.
const PageBreak = "\n\n--- Page Break ---\n\n"

// PDFDocument is the subset of a parsed PDF the extractor needs.
type PDFDocument interface {
	NumPages() int
	Text(page int) (string, error)
	RenderJPEG(ctx context.Context, page int, dpi float64, quality int) ([]byte, error)
	Close() error
}

// PDFOpener opens raw PDF bytes.
type PDFOpener func(data []byte) (PDFDocument, error)

// Options tune the PDF fallback path.
type Options struct {
	DPI                 int
	JPEGQuality         int
	Concurrency         int // OCR pages in flight; 1 keeps the fallback strictly sequential
	NativeTextThreshold int // native text at or below this many characters counts as scanned
}

// DefaultOptions returns the standard fallback settings.
func DefaultOptions() Options {
	return Options{
		DPI:                 200,
		JPEGQuality:         90,
		Concurrency:         1,
		NativeTextThreshold: 20,
	}
}

// Extractor dispatches on file extension to the matching strategy.
type Extractor struct {
	recognizer domain.TextRecognizer
	openPDF    PDFOpener
	opts       Options
	logger     *observability.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithPDFOpener replaces the go-fitz backed opener.
func WithPDFOpener(fn PDFOpener) Option {
	return func(e *Extractor) { e.openPDF = fn }
}

// WithLogger sets the logger.
func WithLogger(l *observability.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Extractor. Zero-valued option fields fall back to DefaultOptions.
func New(recognizer domain.TextRecognizer, opts Options, extra ...Option) *Extractor {
	def := DefaultOptions()
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = def.JPEGQuality
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.NativeTextThreshold <= 0 {
		opts.NativeTextThreshold = def.NativeTextThreshold
	}

	e := &Extractor{
		recognizer: recognizer,
		openPDF: func(data []byte) (PDFDocument, error) {
			return pdf.Open(data)
		},
		opts:   opts,
		logger: observability.DefaultLogger(),
	}
	for _, o := range extra {
		o(e)
	}
	e.logger = e.logger.WithComponent("extract")
	return e
}

// Extract returns the text of an artifact. Unsupported extensions fail with
// an unsupported_file_type error. Other failures degrade to empty text and
// are returned as typed errors alongside whatever result was produced, so
// callers can report them without aborting. progress may be nil.
func (e *Extractor) Extract(ctx context.Context, artifact domain.Artifact, progress chan<- domain.ProgressEvent) (domain.ExtractionResult, error) {
	kind, err := artifact.Kind()
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	logger := e.logger.WithOperation("extract")
	start := time.Now()

	var result domain.ExtractionResult
	switch kind {
	case domain.FileKindPDF:
		result, err = e.extractPDF(ctx, artifact.Data, progress)
	case domain.FileKindDOCX:
		result, err = extractDOCX(artifact.Data)
	case domain.FileKindText:
		result = domain.ExtractionResult{Text: decodeText(artifact.Data), Method: domain.MethodPlain}
	case domain.FileKindImage:
		result, err = e.extractImage(ctx, artifact.Data)
	}

	event := logger.Info()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	event.
		Str("file", artifact.Name).
		Str("method", string(result.Method)).
		Int("chars", len(result.Text)).
		Int("pages", result.Pages).
		Dur("elapsed", time.Since(start)).
		Msg("Extraction finished")

	return result, err
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (domain.ExtractionResult, error) {
	result := domain.ExtractionResult{Method: domain.MethodImageOCR, Pages: 1}
	text, err := e.recognizer.RecognizeText(ctx, data)
	if err != nil {
		return result, err
	}
	result.Text = text
	return result, nil
}

// emitEvent safely emits an event to the channel
func (e *Extractor) emitEvent(progress chan<- domain.ProgressEvent, event domain.ProgressEvent) {
	if progress == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case progress <- event:
	default:
		e.logger.Debug().Str("event", string(event.Type)).Msg("Progress channel full, dropping event")
	}
}
