package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Extractor turns an image into text. filename identifies the source image
// in logs and result records.
type Extractor interface {
	ExtractText(ctx context.Context, img image.Image, filename string) (string, error)
}

// TesseractExtractor runs the tesseract CLI, feeding the image through stdin
// and reading the recognized text from stdout
type TesseractExtractor struct {
	Command  string
	Language string
}

// NewTesseractExtractor creates an extractor for the given binary and language list
func NewTesseractExtractor(command, language string) *TesseractExtractor {
	return &TesseractExtractor{Command: command, Language: language}
}

// Available reports whether the configured binary can be found
func (e *TesseractExtractor) Available() bool {
	_, err := exec.LookPath(e.Command)
	return err == nil
}

func (e *TesseractExtractor) ExtractText(ctx context.Context, img image.Image, filename string) (string, error) {
	var input bytes.Buffer
	if err := png.Encode(&input, img); err != nil {
		return "", errors.Wrapf(err, "failed to encode %s for ocr", filename)
	}

	cmd := exec.CommandContext(ctx, e.Command, e.args()...)
	cmd.Stdin = &input
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", errors.Wrapf(err, "%s failed on %s: %s", e.Command, filename, msg)
		}
		return "", errors.Wrapf(err, "%s failed on %s", e.Command, filename)
	}

	return strings.TrimSpace(stdout.String()), nil
}

func (e *TesseractExtractor) args() []string {
	args := []string{"stdin", "stdout"}
	if e.Language != "" {
		args = append(args, "-l", e.Language)
	}
	return args
}
