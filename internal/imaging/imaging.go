// Package imaging holds the small raster helpers shared by capture, OCR and
// judgment: grayscale conversion, PNG persistence and base64 encoding.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const filenameLayout = "20060102_150405"

// ToGray converts img to a single-channel image. Gray inputs are returned unchanged.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// EncodeBase64 encodes img as PNG and returns the standard base64 text
func EncodeBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, "failed to encode png")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// LoadPNG decodes an image file from disk
func LoadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open image")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return img, nil
}

// Saver writes screenshots as screenshot_YYYYMMDD_HHMMSS.png files
type Saver struct {
	now func() time.Time
}

// NewSaver creates a saver using the wall clock
func NewSaver() *Saver {
	return &Saver{now: time.Now}
}

// WithClock overrides the clock used to name files
func (s *Saver) WithClock(now func() time.Time) *Saver {
	s.now = now
	return s
}

// Filename returns the base name a capture taken now would get
func (s *Saver) Filename() string {
	return FilenameAt(s.now())
}

// FilenameAt returns the screenshot file name for a capture taken at t
func FilenameAt(t time.Time) string {
	return fmt.Sprintf("screenshot_%s.png", t.Format(filenameLayout))
}

// Save writes img into folder (created if needed) and returns the file path.
// Two saves within the same second get a numeric suffix instead of overwriting.
func (s *Saver) Save(img image.Image, folder string, grayscale bool) (string, error) {
	if img == nil {
		return "", errors.New("nil image")
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create screenshot folder")
	}

	if grayscale {
		img = ToGray(img)
	}

	path := uniquePath(filepath.Join(folder, s.Filename()))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to create image file")
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}

// CopyImage copies src into destFolder keeping its base name and returns the new path
func CopyImage(src, destFolder string) (string, error) {
	if err := os.MkdirAll(destFolder, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create destination folder")
	}

	in, err := os.Open(src)
	if err != nil {
		return "", errors.Wrap(err, "failed to open source image")
	}
	defer in.Close()

	dst := uniquePath(filepath.Join(destFolder, filepath.Base(src)))
	out, err := os.Create(dst)
	if err != nil {
		return "", errors.Wrap(err, "failed to create destination image")
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", errors.Wrap(err, "failed to copy image")
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrap(err, "failed to flush copied image")
	}
	return dst, nil
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
