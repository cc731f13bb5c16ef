package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoc struct {
	texts   []string
	textErr error
	closed  bool
}

func (d *fakeDoc) NumPages() int { return len(d.texts) }

func (d *fakeDoc) Text(page int) (string, error) {
	if d.textErr != nil {
		return "", d.textErr
	}
	return d.texts[page], nil
}

func (d *fakeDoc) RenderJPEG(_ context.Context, page int, dpi float64, quality int) ([]byte, error) {
	return []byte(fmt.Sprintf("page-%d@%.0f", page+1, dpi)), nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeRecognizer struct {
	mu      sync.Mutex
	replies map[string]string
	fail    map[string]bool
	delay   map[string]time.Duration
	calls   []string
}

func (r *fakeRecognizer) RecognizeText(_ context.Context, image []byte) (string, error) {
	key := string(image)
	r.mu.Lock()
	r.calls = append(r.calls, key)
	d := r.delay[key]
	r.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
	if r.fail[key] {
		return "", domain.OCRError("vision call failed", errors.New("boom"))
	}
	return r.replies[key], nil
}

func (r *fakeRecognizer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestExtractor(rec domain.TextRecognizer, doc *fakeDoc, opts Options) *Extractor {
	return New(rec, opts,
		WithLogger(observability.Nop()),
		WithPDFOpener(func([]byte) (PDFDocument, error) { return doc, nil }),
	)
}

func TestExtract_PlainText(t *testing.T) {
	rec := &fakeRecognizer{}
	e := newTestExtractor(rec, nil, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "report.txt", Data: []byte("Crop yield fell 12% due to drought.")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Crop yield fell 12% due to drought.", res.Text)
	assert.Equal(t, domain.MethodPlain, res.Method)
	assert.Zero(t, rec.callCount())
}

func TestExtract_PlainTextDecoding(t *testing.T) {
	e := newTestExtractor(&fakeRecognizer{}, nil, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "NOTES.TXT", Data: []byte("soil\xffpH")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "soil�pH", res.Text)

	res, err = e.Extract(context.Background(), domain.Artifact{Name: "bom.txt", Data: []byte("\xef\xbb\xbfmulch")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mulch", res.Text)
}

func TestExtract_ScannedPDFFallsBackToOCR(t *testing.T) {
	doc := &fakeDoc{texts: []string{"", ""}}
	rec := &fakeRecognizer{replies: map[string]string{"page-1@200": "A", "page-2@200": "B"}}
	e := newTestExtractor(rec, doc, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "scan.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "A\n\n--- Page Break ---\n\nB", res.Text)
	assert.Equal(t, domain.MethodPDFOCR, res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []string{"page-1@200", "page-2@200"}, rec.calls)
	assert.True(t, doc.closed)
}

func TestExtract_NativeTextThreshold(t *testing.T) {
	tests := []struct {
		name    string
		native  []string
		wantOCR bool
	}{
		{"long native text skips OCR", []string{"Wheat rust was observed in the north field."}, false},
		{"short native text triggers OCR", []string{"Page 1"}, true},
		{"exactly twenty characters triggers OCR", []string{"abcdefghij", "klmnopqrs"}, true},
		{"twenty one characters skips OCR", []string{"abcdefghijklmnopqrstu"}, false},
		{"whitespace only triggers OCR", []string{"   \n\t  "}, true},
		{"multibyte text counted by characters", []string{"ధాన్యం ధాన్యం"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &fakeDoc{texts: tt.native}
			rec := &fakeRecognizer{replies: map[string]string{"page-1@200": "ocr text"}}
			e := newTestExtractor(rec, doc, DefaultOptions())

			res, err := e.Extract(context.Background(), domain.Artifact{Name: "doc.pdf"}, nil)
			require.NoError(t, err)
			if tt.wantOCR {
				assert.Equal(t, len(tt.native), rec.callCount())
				assert.Equal(t, domain.MethodPDFOCR, res.Method)
			} else {
				assert.Zero(t, rec.callCount())
				assert.Equal(t, domain.MethodNative, res.Method)
				assert.Equal(t, strings.TrimSpace(strings.Join(tt.native, "\n")), res.Text)
			}
		})
	}
}

func TestNew_ZeroOptionsUseDefaults(t *testing.T) {
	doc := &fakeDoc{texts: []string{"tiny"}}
	rec := &fakeRecognizer{replies: map[string]string{"page-1@200": "scanned field log"}}
	e := newTestExtractor(rec, doc, Options{})

	assert.Equal(t, DefaultOptions(), e.opts)

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "doc.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.callCount())
	assert.Equal(t, domain.MethodPDFOCR, res.Method)
	assert.Equal(t, "scanned field log", res.Text)
}

func TestExtract_NativeTextErrorFallsBack(t *testing.T) {
	doc := &fakeDoc{texts: []string{"x"}, textErr: errors.New("corrupt xref")}
	rec := &fakeRecognizer{replies: map[string]string{"page-1@200": "recovered"}}
	e := newTestExtractor(rec, doc, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "doc.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Text)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtract_PageFailureIsIsolated(t *testing.T) {
	doc := &fakeDoc{texts: []string{"", "", ""}}
	rec := &fakeRecognizer{
		replies: map[string]string{"page-1@200": "A", "page-3@200": "C"},
		fail:    map[string]bool{"page-2@200": true},
	}
	e := newTestExtractor(rec, doc, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "doc.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "A"+PageBreak+"C", res.Text)
	assert.Equal(t, 3, rec.callCount())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "page 2")
}

func TestExtract_AllPagesFail(t *testing.T) {
	doc := &fakeDoc{texts: []string{"", ""}}
	rec := &fakeRecognizer{fail: map[string]bool{"page-1@200": true, "page-2@200": true}}
	e := newTestExtractor(rec, doc, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "doc.pdf"}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeOCR))
	assert.Empty(t, res.Text)
}

func TestExtract_EmptyOCRPagesAreSkipped(t *testing.T) {
	doc := &fakeDoc{texts: []string{"", "", ""}}
	rec := &fakeRecognizer{replies: map[string]string{"page-1@200": "A", "page-3@200": "C"}}
	e := newTestExtractor(rec, doc, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "doc.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "A"+PageBreak+"C", res.Text)
}

func TestExtract_ParallelOCRPreservesOrder(t *testing.T) {
	doc := &fakeDoc{texts: make([]string, 5)}
	rec := &fakeRecognizer{replies: map[string]string{}, delay: map[string]time.Duration{}}
	for i := 1; i <= 5; i++ {
		key := fmt.Sprintf("page-%d@200", i)
		rec.replies[key] = fmt.Sprintf("P%d", i)
		rec.delay[key] = time.Duration(6-i) * 5 * time.Millisecond
	}
	opts := DefaultOptions()
	opts.Concurrency = 4
	e := newTestExtractor(rec, doc, opts)

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "doc.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{"P1", "P2", "P3", "P4", "P5"}, PageBreak), res.Text)
}

func TestExtract_ProgressEvents(t *testing.T) {
	doc := &fakeDoc{texts: []string{"", ""}}
	rec := &fakeRecognizer{replies: map[string]string{"page-1@200": "A", "page-2@200": "B"}}
	e := newTestExtractor(rec, doc, DefaultOptions())

	progress := make(chan domain.ProgressEvent, 16)
	_, err := e.Extract(context.Background(), domain.Artifact{Name: "scan.pdf"}, progress)
	require.NoError(t, err)
	close(progress)

	var events []domain.ProgressEvent
	for ev := range progress {
		events = append(events, ev)
	}
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventStart, events[0].Type)
	assert.Equal(t, 2, events[0].Total)
	assert.Equal(t, domain.EventComplete, events[len(events)-1].Type)

	var completed []int
	for _, ev := range events {
		if ev.Type == domain.EventPageComplete {
			completed = append(completed, ev.Completed)
		}
	}
	assert.Equal(t, []int{1, 2}, completed)
}

func TestExtract_PDFOpenFailure(t *testing.T) {
	e := New(&fakeRecognizer{}, DefaultOptions(),
		WithLogger(observability.Nop()),
		WithPDFOpener(func([]byte) (PDFDocument, error) { return nil, errors.New("not a pdf") }),
	)

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "broken.pdf"}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
	assert.Empty(t, res.Text)
}

func TestExtract_Image(t *testing.T) {
	rec := &fakeRecognizer{replies: map[string]string{"\xff\xd8jpeg": "Neem oil 5ml/L"}}
	e := newTestExtractor(rec, nil, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "label.JPG", Data: []byte("\xff\xd8jpeg")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Neem oil 5ml/L", res.Text)
	assert.Equal(t, domain.MethodImageOCR, res.Method)
}

func TestExtract_UnsupportedType(t *testing.T) {
	rec := &fakeRecognizer{}
	e := newTestExtractor(rec, nil, DefaultOptions())

	_, err := e.Extract(context.Background(), domain.Artifact{Name: "sheet.xlsx", Data: []byte("x")}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeUnsupportedFile))
	assert.Zero(t, rec.callCount())
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_DOCX(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>Soil test</w:t></w:r><w:r><w:t xml:space="preserve"> results</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>pH</w:t><w:tab/><w:t>6.5</w:t></w:r></w:p>`+
			`<w:p/>`)
	e := newTestExtractor(&fakeRecognizer{}, nil, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "soil.docx", Data: data}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Soil test results\npH\t6.5", res.Text)
	assert.Equal(t, domain.MethodDOCX, res.Method)
}

func TestExtract_DOCXIncludesTableCells(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>Field trial</w:t></w:r></w:p>`+
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Plot A</w:t></w:r></w:p></w:tc>`+
			`<w:tc><w:p><w:r><w:t>4.2 t/ha</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)
	e := newTestExtractor(&fakeRecognizer{}, nil, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "trial.docx", Data: data}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Field trial\nPlot A\n4.2 t/ha", res.Text)
}

func TestExtract_DOCXCorrupt(t *testing.T) {
	e := newTestExtractor(&fakeRecognizer{}, nil, DefaultOptions())

	res, err := e.Extract(context.Background(), domain.Artifact{Name: "bad.docx", Data: []byte("not a zip")}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
	assert.Empty(t, res.Text)
}
