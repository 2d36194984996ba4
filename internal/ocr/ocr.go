// Package ocr turns PDF bytes into plain text, using the embedded text layer
// first and optical recognition of the first pages as a fallback.
package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/config"
)

// MinTextLength is the number of runes extracted text must exceed to count.
const MinTextLength = 30

var (
	// ErrNotPDF is returned for content without the %PDF- signature.
	ErrNotPDF = eris.New("ocr: content is not a PDF")
	// ErrInsufficientText is returned when no path yields usable text.
	ErrInsufficientText = eris.New("ocr: insufficient text")
)

var pdfMagic = []byte("%PDF-")

// TextLayer reads the embedded text of a PDF.
type TextLayer interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Recognizer runs optical character recognition on at most the first pages
// pages of a PDF. The document may have fewer pages than asked for.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, pages int) (string, error)
}

// DocumentExtractor combines a text layer with an optional recognizer.
type DocumentExtractor struct {
	text     TextLayer
	ocr      Recognizer
	maxPages int
}

// NewDocumentExtractor wires an extractor. ocr may be nil when recognition
// is unavailable in the environment.
func NewDocumentExtractor(text TextLayer, ocr Recognizer, maxPages int) *DocumentExtractor {
	if maxPages <= 0 {
		maxPages = 3
	}
	return &DocumentExtractor{text: text, ocr: ocr, maxPages: maxPages}
}

// NewFromConfig builds the extractor described by cfg. A tesseract provider
// whose binaries are missing degrades to text-layer-only extraction.
func NewFromConfig(cfg config.OCRConfig) (*DocumentExtractor, error) {
	text := NewPdfToText(cfg.PdfToTextPath)

	var rec Recognizer
	switch cfg.Provider {
	case "tesseract", "":
		t := NewTesseract(cfg.PdfToPPMPath, cfg.TesseractPath, cfg.DPI)
		if t.Available() {
			rec = t
		} else {
			zap.L().Info("ocr: tesseract or pdftoppm not found, recognition disabled")
		}
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires ocr.mistral_api_key")
		}
		rec = NewMistralOCR(cfg.MistralKey, cfg.MistralModel)
	case "none":
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
	return NewDocumentExtractor(text, rec, cfg.MaxPages), nil
}

// Extract returns the text of a PDF. Every error means "no text" to callers:
// ErrNotPDF for wrong content, ErrInsufficientText when neither path yields
// more than MinTextLength runes.
func (e *DocumentExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", ErrNotPDF
	}
	log := zap.L().With(zap.Int("bytes", len(data)))

	pages, err := PageCount(data)
	if err != nil {
		log.Debug("ocr: page count failed", zap.Error(err))
	} else {
		log = log.With(zap.Int("pages", pages))
	}

	if e.text != nil {
		text, err := e.text.ExtractText(ctx, data)
		if err != nil {
			log.Debug("ocr: text layer failed", zap.Error(err))
		}
		text = strings.TrimSpace(strings.ReplaceAll(text, "\f", "\n"))
		if utf8.RuneCountInString(text) > MinTextLength {
			return text, nil
		}
	}

	if e.ocr == nil {
		return "", ErrInsufficientText
	}

	limit := e.maxPages
	if pages > 0 && pages < limit {
		limit = pages
	}
	text, err := e.ocr.Recognize(ctx, data, limit)
	if err != nil {
		log.Debug("ocr: recognition failed", zap.Error(err))
		return "", ErrInsufficientText
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MinTextLength {
		log.Debug("ocr: used recognition fallback")
		return text, nil
	}
	return "", ErrInsufficientText
}

// binaryAvailable reports whether path resolves to an executable.
func binaryAvailable(path string) bool {
	_, err := exec.LookPath(path)
	return err == nil
}
