package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/spherical/cropcare/internal/domain"
)

const docxBody = "word/document.xml"

// extractDOCX joins the paragraphs of a WordprocessingML body with newlines.
func extractDOCX(data []byte) (domain.ExtractionResult, error) {
	result := domain.ExtractionResult{Method: domain.MethodDOCX}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return result, domain.ExtractionError("Failed to open DOCX archive", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return result, domain.ExtractionError("DOCX archive has no "+docxBody, nil)
	}

	rc, err := body.Open()
	if err != nil {
		return result, domain.ExtractionError("Failed to read DOCX body", err)
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return result, domain.ExtractionError("Failed to parse DOCX body", err)
	}

	result.Text = strings.TrimSpace(strings.Join(paragraphs, "\n"))
	return result, nil
}

// docxParagraphs walks w:p elements collecting w:t runs. Tabs and breaks
// inside a paragraph are kept as whitespace.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return paragraphs, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = inPara
			case "tab":
				if inPara {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara {
					paragraphs = append(paragraphs, current.String())
				}
				inPara = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
}
