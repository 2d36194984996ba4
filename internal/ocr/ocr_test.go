package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/config"
)

var samplePDF = []byte("%PDF-1.4 test content")

type mockTextLayer struct{ mock.Mock }

func (m *mockTextLayer) ExtractText(ctx context.Context, data []byte) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

type mockRecognizer struct{ mock.Mock }

func (m *mockRecognizer) Recognize(ctx context.Context, data []byte, pages int) (string, error) {
	args := m.Called(ctx, data, pages)
	return args.String(0), args.Error(1)
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestExtract_RejectsNonPDF(t *testing.T) {
	text := new(mockTextLayer)
	e := NewDocumentExtractor(text, nil, 3)

	_, err := e.Extract(context.Background(), []byte("<html>not a pdf</html>"))
	assert.ErrorIs(t, err, ErrNotPDF)
	text.AssertNotCalled(t, "ExtractText", mock.Anything, mock.Anything)
}

func TestExtract_TextLayer(t *testing.T) {
	text := new(mockTextLayer)
	text.On("ExtractText", mock.Anything, samplePDF).
		Return("  Page one has the dividend notice.\fPage two has the dates.  ", nil)
	rec := new(mockRecognizer)

	e := NewDocumentExtractor(text, rec, 3)
	got, err := e.Extract(context.Background(), samplePDF)

	require.NoError(t, err)
	assert.Equal(t, "Page one has the dividend notice.\nPage two has the dates.", got)
	rec.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtract_ShortTextWithoutRecognizer(t *testing.T) {
	text := new(mockTextLayer)
	text.On("ExtractText", mock.Anything, samplePDF).Return("scanned", nil)

	_, err := NewDocumentExtractor(text, nil, 3).Extract(context.Background(), samplePDF)
	assert.ErrorIs(t, err, ErrInsufficientText)
}

func TestExtract_FallsBackToRecognition(t *testing.T) {
	text := new(mockTextLayer)
	text.On("ExtractText", mock.Anything, samplePDF).Return("", eris.New("broken xref"))
	rec := new(mockRecognizer)
	rec.On("Recognize", mock.Anything, samplePDF, 3).
		Return("Recognized: the company acquired 10% of a subsidiary.\n", nil)

	got, err := NewDocumentExtractor(text, rec, 0).Extract(context.Background(), samplePDF)

	require.NoError(t, err)
	assert.Equal(t, "Recognized: the company acquired 10% of a subsidiary.", got)
	rec.AssertExpectations(t)
}

func TestExtract_RecognitionTooShortOrFailing(t *testing.T) {
	text := new(mockTextLayer)
	text.On("ExtractText", mock.Anything, samplePDF).Return("", nil)

	short := new(mockRecognizer)
	short.On("Recognize", mock.Anything, samplePDF, 2).Return("   tiny  ", nil)
	_, err := NewDocumentExtractor(text, short, 2).Extract(context.Background(), samplePDF)
	assert.ErrorIs(t, err, ErrInsufficientText)

	failing := new(mockRecognizer)
	failing.On("Recognize", mock.Anything, samplePDF, 2).Return("", eris.New("boom"))
	_, err = NewDocumentExtractor(text, failing, 2).Extract(context.Background(), samplePDF)
	assert.ErrorIs(t, err, ErrInsufficientText)
}

func TestPdfToText_BinPath(t *testing.T) {
	p := NewPdfToText("")
	assert.Equal(t, "pdftotext", p.binPath)

	p = NewPdfToText("/custom/pdftotext")
	assert.Equal(t, "/custom/pdftotext", p.binPath)
}

func TestPdfToText_ExtractText_BinaryNotFound(t *testing.T) {
	p := NewPdfToText("/nonexistent/pdftotext")
	_, err := p.ExtractText(context.Background(), samplePDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestPdfToText_ExtractText_Success(t *testing.T) {
	dir := t.TempDir()
	// Verify the temp file holds the PDF bytes, then emit text.
	bin := writeScript(t, dir, "pdftotext", `head -c 5 "$2"; echo ' Extracted text content'`+"\n")

	text, err := NewPdfToText(bin).ExtractText(context.Background(), samplePDF)
	require.NoError(t, err)
	assert.Contains(t, text, "%PDF- Extracted text content")
}

func TestTesseract_Recognize(t *testing.T) {
	dir := t.TempDir()
	// pdftoppm: the last argument is the output prefix.
	ppm := writeScript(t, dir, "pdftoppm", `for last; do :; done
touch "$last-1.png" "$last-2.png" "$last-3.png" "$last-4.png"
`)
	tess := writeScript(t, dir, "tesseract", `echo "text of $(basename "$1")"`+"\n")

	tr := NewTesseract(ppm, tess, 0)
	assert.Equal(t, defaultDPI, tr.dpi)
	assert.True(t, tr.Available())

	got, err := tr.Recognize(context.Background(), samplePDF, 3)
	require.NoError(t, err)
	assert.Equal(t, "text of page-1.png\n\ntext of page-2.png\n\ntext of page-3.png\n\n", got)
}

func TestTesseract_PdftoppmFails(t *testing.T) {
	dir := t.TempDir()
	ppm := writeScript(t, dir, "pdftoppm", "echo 'Syntax Error' >&2; exit 1\n")
	tess := writeScript(t, dir, "tesseract", "exit 0\n")

	_, err := NewTesseract(ppm, tess, 150).Recognize(context.Background(), samplePDF, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Syntax Error")
}

func TestTesseract_Unavailable(t *testing.T) {
	tr := NewTesseract("/nonexistent/pdftoppm", "/nonexistent/tesseract", 200)
	assert.False(t, tr.Available())
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	ppm := writeScript(t, dir, "pdftoppm", "exit 0\n")
	tess := writeScript(t, dir, "tesseract", "exit 0\n")

	e, err := NewFromConfig(config.OCRConfig{Provider: "tesseract", PdfToPPMPath: ppm, TesseractPath: tess, MaxPages: 2})
	require.NoError(t, err)
	assert.IsType(t, &Tesseract{}, e.ocr)
	assert.Equal(t, 2, e.maxPages)

	e, err = NewFromConfig(config.OCRConfig{Provider: "tesseract", PdfToPPMPath: "/nonexistent/pdftoppm"})
	require.NoError(t, err)
	assert.Nil(t, e.ocr)
	assert.Equal(t, 3, e.maxPages)

	e, err = NewFromConfig(config.OCRConfig{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, e.ocr)

	e, err = NewFromConfig(config.OCRConfig{Provider: "mistral", MistralKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &MistralOCR{}, e.ocr)

	_, err = NewFromConfig(config.OCRConfig{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires ocr.mistral_api_key")

	_, err = NewFromConfig(config.OCRConfig{Provider: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "unknown"`)
}

func TestMistralOCR_DefaultModel(t *testing.T) {
	m := NewMistralOCR("key", "")
	assert.Equal(t, defaultMistralModel, m.model)
	assert.Equal(t, mistralOCREndpoint, m.endpoint)

	m = NewMistralOCR("key", "custom-model")
	assert.Equal(t, "custom-model", m.model)
}

func TestMistralOCR_Recognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req mistralOCRRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "document_url", req.Document.Type)
		assert.True(t, strings.HasPrefix(req.Document.DocumentURL, "data:application/pdf;base64,"))

		resp := mistralOCRResponse{
			Pages: []mistralOCRPage{
				{Index: 0, Markdown: "Page one content"},
				{Index: 1, Markdown: "Page two content"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	m := &MistralOCR{apiKey: "test-key", model: "test-model", endpoint: srv.URL, client: &http.Client{}}

	text, err := m.Recognize(context.Background(), samplePDF, 3)
	require.NoError(t, err)
	assert.Equal(t, "Page one content\n\nPage two content", text)
}

func TestMistralOCR_PageBound(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)

		resp := mistralOCRResponse{Pages: []mistralOCRPage{
			{Index: 0, Markdown: "one"},
			{Index: 1, Markdown: "two"},
			{Index: 2, Markdown: "three"},
			{Index: 3, Markdown: "four"},
		}}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	m := &MistralOCR{apiKey: "k", model: "m", endpoint: srv.URL, client: &http.Client{}}

	// The bound trims the reply rather than the request.
	text, err := m.Recognize(context.Background(), samplePDF, 3)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo\n\nthree", text)

	text, err = m.Recognize(context.Background(), samplePDF, 0)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo\n\nthree\n\nfour", text)

	require.Len(t, bodies, 2)
	for _, body := range bodies {
		assert.NotContains(t, body, "pages")
	}
}

func TestMistralOCR_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	m := &MistralOCR{apiKey: "bad-key", model: "test-model", endpoint: srv.URL, client: &http.Client{}}

	_, err := m.Recognize(context.Background(), samplePDF, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral API returned 401")
}

func TestMistralOCR_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{invalid json`)) //nolint:errcheck
	}))
	defer srv.Close()

	m := &MistralOCR{apiKey: "test-key", model: "test-model", endpoint: srv.URL, client: &http.Client{}}

	_, err := m.Recognize(context.Background(), samplePDF, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal mistral response")
}

func TestPageCount_Invalid(t *testing.T) {
	_, err := PageCount(samplePDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr: page count")
}
