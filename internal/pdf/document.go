package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/spherical/cropcare/internal/domain"
)

// Document is an opened PDF held in memory.
type Document struct {
	doc *fitz.Document
}

// Open validates and opens PDF bytes with go-fitz.
func Open(data []byte) (*Document, error) {
	if err := NewValidator().ValidatePDFBytes(data); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.ConversionError("Failed to open PDF", err)
	}
	return &Document{doc: doc}, nil
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.doc.NumPage()
}

// Text returns the embedded text of a zero-based page.
func (d *Document) Text(page int) (string, error) {
	text, err := d.doc.Text(page)
	if err != nil {
		return "", domain.ExtractionError(fmt.Sprintf("Failed to read text of page %d", page+1), err)
	}
	return text, nil
}

// RenderJPEG rasterizes a zero-based page at the given DPI and encodes it as JPEG.
func (d *Document) RenderJPEG(ctx context.Context, page int, dpi float64, quality int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := NewValidator()
	if err := v.ValidateQuality(quality); err != nil {
		return nil, err
	}
	if err := v.ValidateDPI(dpi); err != nil {
		return nil, err
	}

	img, err := d.doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, domain.ConversionError(fmt.Sprintf("Failed to render page %d", page+1), err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, domain.ConversionError(fmt.Sprintf("Failed to encode page %d as JPG", page+1), err)
	}
	return buf.Bytes(), nil
}

// Close releases the underlying MuPDF document.
func (d *Document) Close() error {
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
