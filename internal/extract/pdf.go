package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/cropcare/internal/domain"
)

// extractPDF reads the native text layer and falls back to per-page OCR when
// that layer is missing or too short to be a real document.
func (e *Extractor) extractPDF(ctx context.Context, data []byte, progress chan<- domain.ProgressEvent) (domain.ExtractionResult, error) {
	result := domain.ExtractionResult{Method: domain.MethodNative}

	doc, err := e.openPDF(data)
	if err != nil {
		return result, domain.ExtractionError("Failed to open PDF", err)
	}
	defer doc.Close()

	pages := doc.NumPages()
	result.Pages = pages

	native, err := nativeText(doc)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Native text extraction failed, falling back to OCR")
		result.Warnings = append(result.Warnings, "native text layer unreadable")
	} else if utf8.RuneCountInString(native) > e.opts.NativeTextThreshold {
		result.Text = native
		return result, nil
	}

	result.Method = domain.MethodPDFOCR
	text, warnings, err := e.ocrPages(ctx, doc, pages, progress)
	result.Text = text
	result.Warnings = append(result.Warnings, warnings...)
	return result, err
}

func nativeText(doc PDFDocument) (string, error) {
	parts := make([]string, 0, doc.NumPages())
	for i := 0; i < doc.NumPages(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// ocrPages rasterizes and recognizes every page through a bounded pool.
// Results keep page order and a failed page only drops its own text.
func (e *Extractor) ocrPages(ctx context.Context, doc PDFDocument, pages int, progress chan<- domain.ProgressEvent) (string, []string, error) {
	e.emitEvent(progress, domain.ProgressEvent{
		Type:    domain.EventStart,
		Total:   pages,
		Message: fmt.Sprintf("Running OCR on %d pages", pages),
	})

	texts := make([]string, pages)
	failures := make([]error, pages)

	var (
		mu        sync.Mutex
		completed int
		// go-fitz documents are not safe for concurrent rendering.
		renderMu sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i := 0; i < pages; i++ {
		page := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			e.emitEvent(progress, domain.ProgressEvent{
				Type:       domain.EventPageProcessing,
				PageNumber: page + 1,
				Total:      pages,
				Message:    fmt.Sprintf("Processing page %d", page+1),
			})

			text, err := e.ocrPage(gctx, doc, page, &renderMu)
			if gctx.Err() != nil {
				return gctx.Err()
			}

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()

			if err != nil {
				failures[page] = err
				e.logger.Error().Err(err).Int("page", page+1).Msg("Page OCR failed")
				e.emitEvent(progress, domain.ProgressEvent{
					Type:       domain.EventError,
					PageNumber: page + 1,
					Completed:  done,
					Total:      pages,
					Message:    err.Error(),
				})
				return nil
			}

			texts[page] = text
			e.emitEvent(progress, domain.ProgressEvent{
				Type:       domain.EventPageComplete,
				PageNumber: page + 1,
				Completed:  done,
				Total:      pages,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	var (
		kept     []string
		warnings []string
		failed   int
	)
	for i, text := range texts {
		if failures[i] != nil {
			failed++
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i+1, failures[i]))
			continue
		}
		if text != "" {
			kept = append(kept, text)
		}
	}

	combined := strings.TrimSpace(strings.Join(kept, PageBreak))

	e.emitEvent(progress, domain.ProgressEvent{
		Type:      domain.EventComplete,
		Completed: pages,
		Total:     pages,
		Message:   fmt.Sprintf("OCR finished: %d pages, %d failed", pages, failed),
	})

	if combined == "" && failed > 0 {
		return "", warnings, domain.OCRError(fmt.Sprintf("OCR failed on %d of %d pages", failed, pages), failures[firstFailure(failures)])
	}
	return combined, warnings, nil
}

func (e *Extractor) ocrPage(ctx context.Context, doc PDFDocument, page int, renderMu *sync.Mutex) (string, error) {
	renderMu.Lock()
	img, err := doc.RenderJPEG(ctx, page, float64(e.opts.DPI), e.opts.JPEGQuality)
	renderMu.Unlock()
	if err != nil {
		return "", err
	}
	return e.recognizer.RecognizeText(ctx, img)
}

func firstFailure(failures []error) int {
	for i, err := range failures {
		if err != nil {
			return i
		}
	}
	return 0
}
