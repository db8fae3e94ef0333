// Package extract provides text extraction from various document formats.
package extract

import (
	"fmt"
	"strings"

	"github.com/seradocs/sera/internal/models"
)

// Extractor extracts plain text from uploaded document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with or without leading dot) is a supported
// upload format.
func (e *Extractor) Supported(ext string) bool {
	switch normalizeExt(ext) {
	case ".pdf", ".docx", ".pptx", ".txt", ".csv", ".html", ".md", ".xlsx":
		return true
	default:
		return false
	}
}

// Extract extracts text from content based on the file extension.
// Returns ErrUnsupportedFormat for extensions outside the supported set and
// ErrExtraction (wrapping the cause) for corrupt or unreadable content.
func (e *Extractor) Extract(content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch normalizeExt(ext) {
	case ".pdf":
		text, err = extractPDF(content)
	case ".docx":
		text, err = extractDOCX(content)
	case ".pptx":
		text, err = extractPPTX(content)
	case ".xlsx":
		text, err = extractExcel(content)
	case ".csv":
		text, err = extractCSV(content)
	case ".html":
		text, err = extractHTML(content)
	case ".txt", ".md":
		text, err = extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrExtraction, err)
	}
	return text, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
