package monitor

import (
	"fmt"
	"image"
)

// CountChangedPixels returns how many pixels differ between a and b. The
// per-channel absolute difference is reduced to luminance and compared with
// tolerance. Both images must have the same size; their origins may differ,
// since a SubImage capture keeps the crop offset.
func CountChangedPixels(a, b image.Image, tolerance uint8) (int, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 0, fmt.Errorf("frame size mismatch: %dx%d vs %dx%d", ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}

	changed := 0
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, _ := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, _ := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()

			if diffLuma(r1, r2, g1, g2, b1, b2) > uint32(tolerance) {
				changed++
			}
		}
	}
	return changed, nil
}

// diffLuma returns the 8-bit luminance of the per-channel absolute difference,
// using the same weights as color.GrayModel.
func diffLuma(r1, r2, g1, g2, b1, b2 uint32) uint32 {
	dr, dg, db := absDiff(r1, r2), absDiff(g1, g2), absDiff(b1, b2)
	y := (19595*dr + 38470*dg + 7471*db + 1<<15) >> 24
	return y
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
