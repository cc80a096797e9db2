// Package textextract converts raw document bytes into plain text per
// modality: PDF text layers, readable article text from web pages, and
// JPEG thumbnails for images.
package textextract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFResult carries the extracted text plus whether extraction was
// considered degraded (empty or near-empty text layer — e.g. a scanned
// PDF with no OCR).
type PDFResult struct {
	Text     string
	Pages    int
	Degraded bool
}

// ExtractPDF reads a PDF's text layer page by page, concatenating with a
// blank line between pages. A PDF whose extracted text is effectively
// empty (scanned-image-only) is reported as Degraded so the ingestion
// pipeline can fall back to a single placeholder chunk.
func ExtractPDF(data []byte, maxPages int) (PDFResult, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PDFResult{}, err
	}

	n := r.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}

	var sb strings.Builder
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	text := strings.TrimSpace(sb.String())
	return PDFResult{Text: text, Pages: n, Degraded: text == ""}, nil
}
