package ocr

import (
	"image"

	"github.com/chatsentry/chatsentry/internal/config"
	"github.com/chatsentry/chatsentry/internal/imaging"

	"golang.org/x/image/draw"
)

// Preprocess prepares a screenshot for recognition: grayscale, linear
// contrast stretch, optional upscale, then binarization at the configured
// threshold. The result has its origin at (0, 0).
func Preprocess(img image.Image, cfg config.OCRConfig) *image.Gray {
	gray := stretchContrast(imaging.ToGray(img))

	if cfg.Scale > 1 {
		gray = upscale(gray, cfg.Scale)
	}

	binarize(gray, cfg.BinarizeThreshold)
	return gray
}

// stretchContrast maps the darkest pixel to 0 and the brightest to 255.
// It always returns a fresh image so callers may mutate it.
func stretchContrast(src *image.Gray) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	lo, hi := uint8(255), uint8(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := src.GrayAt(x, y).Y
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	span := int(hi) - int(lo)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := int(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			if span > 0 {
				v = (v - int(lo)) * 255 / span
			}
			out.Pix[y*out.Stride+x] = uint8(v)
		}
	}
	return out
}

func upscale(src *image.Gray, factor float64) *image.Gray {
	b := src.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func binarize(img *image.Gray, threshold uint8) {
	for i, v := range img.Pix {
		if v > threshold {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = 0
		}
	}
}
