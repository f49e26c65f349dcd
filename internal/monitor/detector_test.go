package monitor

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

const frameW, frameH = 100, 50

// frameWith returns a black frame whose first n pixels (row-major) are set to c
func frameWith(n int, c color.RGBA) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, frameW, frameH))
	for i := 0; i < frameW*frameH; i++ {
		img.SetRGBA(i%frameW, i/frameW, color.RGBA{A: 255})
	}
	for i := 0; i < n; i++ {
		img.SetRGBA(i%frameW, i/frameW, c)
	}
	return &Frame{Image: img}
}

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gray  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

func newDetector(threshold int, debounce time.Duration, clock *fakeClock) *ChangeDetector {
	return NewChangeDetector(threshold, 0, debounce, zerolog.Nop()).WithClock(clock.Now)
}

func TestCheckUpdateNilFrame(t *testing.T) {
	d := newDetector(10, time.Second, newClock())

	assert.False(t, d.CheckUpdate(nil))
	assert.False(t, d.CheckUpdate(&Frame{}))
	assert.Nil(t, d.Baseline())
}

func TestCheckUpdateFirstFrameBecomesBaseline(t *testing.T) {
	d := newDetector(10, time.Second, newClock())
	first := frameWith(0, white)

	assert.False(t, d.CheckUpdate(first))
	assert.Same(t, first, d.Baseline())
	assert.True(t, d.LastAccepted().IsZero())
}

func TestCheckUpdateIdenticalFrames(t *testing.T) {
	for _, threshold := range []int{0, 1, 500, 100000} {
		d := newDetector(threshold, 0, newClock())
		require.False(t, d.CheckUpdate(frameWith(300, white)))
		assert.False(t, d.CheckUpdate(frameWith(300, white)), "threshold %d", threshold)
	}
}

func TestCheckUpdateAcceptsChange(t *testing.T) {
	clock := newClock()
	d := newDetector(500, 10*time.Second, clock)

	require.False(t, d.CheckUpdate(frameWith(0, white)))

	changed := frameWith(1000, white)
	assert.True(t, d.CheckUpdate(changed))
	assert.Same(t, changed, d.Baseline())
	assert.Equal(t, clock.Now(), d.LastAccepted())
}

func TestCheckUpdateBelowThresholdKeepsBaseline(t *testing.T) {
	clock := newClock()
	d := newDetector(500, 0, clock)

	base := frameWith(0, white)
	require.False(t, d.CheckUpdate(base))

	// small drifts accumulate against the same baseline
	assert.False(t, d.CheckUpdate(frameWith(300, white)))
	assert.Same(t, base, d.Baseline())
	assert.False(t, d.CheckUpdate(frameWith(500, white)))
	assert.Same(t, base, d.Baseline())
	assert.True(t, d.CheckUpdate(frameWith(501, white)))
}

func TestCheckUpdateDebounceKeepsBaseline(t *testing.T) {
	clock := newClock()
	d := newDetector(500, 10*time.Second, clock)

	require.False(t, d.CheckUpdate(frameWith(0, white)))
	b := frameWith(1000, white)
	require.True(t, d.CheckUpdate(b))

	clock.Advance(2 * time.Second)
	assert.False(t, d.CheckUpdate(frameWith(2000, gray)))
	clock.Advance(2 * time.Second)
	assert.False(t, d.CheckUpdate(frameWith(3000, white)))
	assert.Same(t, b, d.Baseline())

	// after the window, the next frame is compared against b, not an intermediate one
	clock.Advance(7 * time.Second)
	assert.False(t, d.CheckUpdate(frameWith(1000, white)), "identical to b")
	assert.True(t, d.CheckUpdate(frameWith(2000, white)))
}

func TestCheckUpdateEndToEndScenario(t *testing.T) {
	clock := newClock()
	d := newDetector(500, 10*time.Second, clock)

	a := frameWith(0, white)
	assert.False(t, d.CheckUpdate(a), "A becomes baseline")

	b := frameWith(1000, white)
	assert.True(t, d.CheckUpdate(b), "B differs by 1000 px at t=0s")
	assert.Same(t, b, d.Baseline())

	clock.Advance(3 * time.Second)
	c := frameWith(2000, white)
	n, err := CountChangedPixels(b.Image, c.Image, 0)
	require.NoError(t, err)
	require.Equal(t, 1000, n)
	assert.False(t, d.CheckUpdate(c), "C at t=3s is debounced")
	assert.Same(t, b, d.Baseline())

	clock.Advance(8 * time.Second)
	dFrame := frameWith(2000, white)
	assert.True(t, d.CheckUpdate(dFrame), "D at t=11s is accepted")
	assert.Same(t, dFrame, d.Baseline())
}

func TestCheckUpdateSizeMismatch(t *testing.T) {
	d := newDetector(10, 0, newClock())
	base := frameWith(0, white)
	require.False(t, d.CheckUpdate(base))

	other := &Frame{Image: image.NewRGBA(image.Rect(0, 0, 10, 10))}
	assert.False(t, d.CheckUpdate(other))
	assert.Same(t, base, d.Baseline())
}

func TestReset(t *testing.T) {
	clock := newClock()
	d := newDetector(10, time.Hour, clock)
	require.False(t, d.CheckUpdate(frameWith(0, white)))
	require.True(t, d.CheckUpdate(frameWith(100, white)))

	d.Reset()

	assert.Nil(t, d.Baseline())
	assert.True(t, d.LastAccepted().IsZero())
	assert.False(t, d.CheckUpdate(frameWith(0, white)), "first frame after reset is a baseline again")
}
