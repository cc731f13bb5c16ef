package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// FileKind is the extraction strategy selected for an upload.
type FileKind string

const (
	FileKindPDF   FileKind = "pdf"
	FileKindDOCX  FileKind = "docx"
	FileKindText  FileKind = "txt"
	FileKindImage FileKind = "image"
)

// SupportedExtensions lists the upload extensions accepted by the extractor.
var SupportedExtensions = []string{"pdf", "docx", "txt", "jpg", "jpeg", "png"}

// Artifact is an uploaded file held in memory for a single extraction call.
type Artifact struct {
	Name string
	Data []byte
}

// Ext returns the lower-cased extension without the leading dot.
func (a Artifact) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(a.Name)), ".")
}

// Kind maps the artifact extension to a FileKind.
func (a Artifact) Kind() (FileKind, error) {
	switch ext := a.Ext(); ext {
	case "pdf":
		return FileKindPDF, nil
	case "docx":
		return FileKindDOCX, nil
	case "txt":
		return FileKindText, nil
	case "jpg", "jpeg", "png":
		return FileKindImage, nil
	default:
		return "", UnsupportedFileError(ext)
	}
}

// IsImage reports whether the artifact is an image upload.
func (a Artifact) IsImage() bool {
	kind, err := a.Kind()
	return err == nil && kind == FileKindImage
}

// ExtractionMethod records which strategy produced the text.
type ExtractionMethod string

const (
	MethodNative   ExtractionMethod = "pdf-text"
	MethodPDFOCR   ExtractionMethod = "pdf-ocr"
	MethodDOCX     ExtractionMethod = "docx"
	MethodImageOCR ExtractionMethod = "image-ocr"
	MethodPlain    ExtractionMethod = "plain"
)

// ExtractionResult carries extracted text. Empty Text means nothing readable was found.
type ExtractionResult struct {
	Text     string
	Method   ExtractionMethod
	Pages    int
	Warnings []string
}

// EventType represents the type of progress event
type EventType string

const (
	EventStart          EventType = "start"
	EventPageProcessing EventType = "page_processing"
	EventPageComplete   EventType = "page_complete"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// ProgressEvent reports OCR fallback progress. It is observational only.
type ProgressEvent struct {
	Type       EventType `json:"type"`
	PageNumber int       `json:"page_number,omitempty"`
	Completed  int       `json:"completed"`
	Total      int       `json:"total"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Fraction returns completed/total, or 0 when total is unknown.
func (e ProgressEvent) Fraction() float64 {
	if e.Total <= 0 {
		return 0
	}
	return float64(e.Completed) / float64(e.Total)
}
