// Package ocr reads the text off recipe photos with the Tesseract CLI.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"bear-kitchen/internal/config"
	"bear-kitchen/internal/llm"
	"bear-kitchen/internal/shared"
)

// Separator is placed between existing content and newly scanned text.
const Separator = "\n\n---\n\n"

// Tesseract runs the tesseract binary on one image at a time.
type Tesseract struct {
	path    string
	lang    string
	timeout time.Duration
}

// NewTesseract creates an OCR engine from cfg.
func NewTesseract(cfg *config.Config) *Tesseract {
	return &Tesseract{path: cfg.TesseractPath, lang: cfg.OCRLanguage, timeout: cfg.NetworkTimeout}
}

// Available reports whether the configured tesseract binary can be found,
// either as a path or on PATH.
func Available(cfg *config.Config) bool {
	if cfg.TesseractPath == "" {
		return false
	}
	_, err := exec.LookPath(cfg.TesseractPath)
	return err == nil
}

// Recognize returns the trimmed text found in img. A photo without legible
// text yields "" and no error.
func (t *Tesseract) Recognize(ctx context.Context, img llm.ImageInput) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("no image to scan: %w", shared.ErrValidation)
	}

	f, err := os.CreateTemp("", "bear-kitchen-ocr-*"+extension(img.MimeType))
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(img.Data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.path, f.Name(), "stdout", "-l", t.lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("tesseract not found at %q: %w", t.path, shared.ErrValidation)
		}
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// AppendScanned adds scanned text below existing content. Empty text leaves
// content unchanged.
func AppendScanned(content, text string) string {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return content
	case content == "":
		return text
	default:
		return content + Separator + text
	}
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/tiff":
		return ".tif"
	default:
		return ".jpg"
	}
}
