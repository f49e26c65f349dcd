package monitor

import (
	"image"
	"image/color"
	"testing"
)

func TestCountChangedPixels(t *testing.T) {
	tests := []struct {
		name      string
		changed   int
		c         color.RGBA
		tolerance uint8
		want      int
	}{
		{"identical", 0, white, 0, 0},
		{"white pixels", 250, white, 0, 250},
		{"gray under tolerance", 250, gray, 200, 0},
		{"gray over tolerance", 250, gray, 100, 250},
		{"pure blue is dim", 10, color.RGBA{B: 255, A: 255}, 30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := frameWith(0, white).Image
			b := frameWith(tt.changed, tt.c).Image

			got, err := CountChangedPixels(a, b, tt.tolerance)
			if err != nil {
				t.Fatalf("CountChangedPixels() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CountChangedPixels() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountChangedPixelsOffsetOrigins(t *testing.T) {
	big := image.NewRGBA(image.Rect(0, 0, 40, 40))
	big.SetRGBA(15, 15, white)
	sub := big.SubImage(image.Rect(10, 10, 20, 20))

	plain := image.NewRGBA(image.Rect(0, 0, 10, 10))

	got, err := CountChangedPixels(plain, sub, 0)
	if err != nil {
		t.Fatalf("CountChangedPixels() error: %v", err)
	}
	if got != 1 {
		t.Errorf("CountChangedPixels() = %d, want 1", got)
	}
}

func TestCountChangedPixelsMismatch(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 10, 10))
	b := image.NewGray(image.Rect(0, 0, 10, 11))

	if _, err := CountChangedPixels(a, b, 0); err == nil {
		t.Error("expected size mismatch error")
	}
}

func BenchmarkCountChangedPixels(b *testing.B) {
	x := frameWith(0, white).Image
	y := frameWith(2500, white).Image
	for i := 0; i < b.N; i++ {
		_, _ = CountChangedPixels(x, y, 0)
	}
}
