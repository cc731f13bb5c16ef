package pdf

import (
	"bytes"
	"fmt"

	"github.com/spherical/cropcare/internal/domain"
)

var pdfMagic = []byte("%PDF-")

// Validator provides input validation for PDF content
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePDFBytes checks that data is non-empty and carries the PDF header.
// Some producers prepend junk, so the header may appear within the first 1KB.
func (v *Validator) ValidatePDFBytes(data []byte) error {
	if len(data) == 0 {
		return domain.ValidationError("PDF content is empty", nil)
	}

	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, pdfMagic) {
		return domain.ValidationError("content is not a PDF (missing %PDF- header)", nil)
	}
	return nil
}

// ValidateQuality validates image quality parameter
func (v *Validator) ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return domain.ValidationError(fmt.Sprintf("quality must be between 1 and 100, got %d", quality), nil)
	}
	return nil
}

// ValidateDPI rejects render resolutions MuPDF cannot sensibly produce.
func (v *Validator) ValidateDPI(dpi float64) error {
	if dpi < 36 || dpi > 600 {
		return domain.ValidationError(fmt.Sprintf("dpi must be between 36 and 600, got %g", dpi), nil)
	}
	return nil
}
