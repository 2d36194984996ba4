package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const defaultDPI = 200

// Tesseract rasterizes pages with pdftoppm and recognizes each image with
// the tesseract CLI.
type Tesseract struct {
	pdftoppm  string
	tesseract string
	dpi       int
}

// NewTesseract creates a Tesseract recognizer. Empty paths use the binaries
// on PATH; dpi <= 0 uses 200.
func NewTesseract(pdftoppmPath, tesseractPath string, dpi int) *Tesseract {
	if pdftoppmPath == "" {
		pdftoppmPath = "pdftoppm"
	}
	if tesseractPath == "" {
		tesseractPath = "tesseract"
	}
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return &Tesseract{pdftoppm: pdftoppmPath, tesseract: tesseractPath, dpi: dpi}
}

// Available reports whether both binaries can be found.
func (t *Tesseract) Available() bool {
	return binaryAvailable(t.pdftoppm) && binaryAvailable(t.tesseract)
}

// Recognize rasterizes up to pages pages and joins the recognized text of
// each with newlines.
func (t *Tesseract) Recognize(ctx context.Context, data []byte, pages int) (string, error) {
	dir, err := os.MkdirTemp("", "disclosure-ocr-*")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	pdfPath, err := writePDF(dir, data)
	if err != nil {
		return "", err
	}

	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(t.dpi), "-png"}
	if pages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(pages))
	}
	args = append(args, pdfPath, prefix)
	if err := run(ctx, t.pdftoppm, args...); err != nil {
		return "", eris.Wrap(err, "ocr: pdftoppm")
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", eris.Wrap(err, "ocr: list rasterized pages")
	}
	sort.Strings(images)
	if pages > 0 && len(images) > pages {
		images = images[:pages]
	}

	var sb strings.Builder
	for _, img := range images {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, t.tesseract, img, "stdout")
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return "", eris.Wrapf(err, "ocr: tesseract failed on %s: %s", filepath.Base(img), stderr.String())
		}
		sb.WriteString(stdout.String())
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func run(ctx context.Context, bin string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "%s: %s", filepath.Base(bin), stderr.String())
	}
	return nil
}

func writePDF(dir string, data []byte) (string, error) {
	path := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", eris.Wrap(err, "ocr: write temp PDF")
	}
	return path, nil
}
