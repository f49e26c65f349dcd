package monitor

import (
	"image"
	"time"

	"github.com/rs/zerolog"
)

// Frame is one capture of the monitored region
type Frame struct {
	Image      image.Image
	CapturedAt time.Time
}

// ChangeDetector decides whether the monitored region changed enough to be
// worth opening the details view. It is not safe for concurrent use; the
// orchestrator loop is its only caller.
type ChangeDetector struct {
	threshold int
	tolerance uint8
	debounce  time.Duration
	log       zerolog.Logger
	now       func() time.Time

	baseline     *Frame
	lastAccepted time.Time
}

// NewChangeDetector creates a detector. threshold is the number of differing
// pixels that must be exceeded, tolerance the per-pixel luminance difference
// ignored as noise.
func NewChangeDetector(threshold int, tolerance uint8, debounce time.Duration, log zerolog.Logger) *ChangeDetector {
	return &ChangeDetector{
		threshold: threshold,
		tolerance: tolerance,
		debounce:  debounce,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for debouncing
func (d *ChangeDetector) WithClock(now func() time.Time) *ChangeDetector {
	d.now = now
	return d
}

// CheckUpdate compares frame against the stored baseline.
func (d *ChangeDetector) CheckUpdate(frame *Frame) bool {
	if frame == nil || frame.Image == nil {
		d.log.Warn().Msg("No screenshot provided")
		return false
	}

	now := d.now()
	if !d.lastAccepted.IsZero() && now.Sub(d.lastAccepted) < d.debounce {
		d.log.Debug().Dur("since_last", now.Sub(d.lastAccepted)).Msg("Debouncing: too soon since last update")
		return false
	}

	if d.baseline == nil {
		d.baseline = frame
		d.log.Debug().Msg("Stored initial screenshot")
		return false
	}

	changed, err := CountChangedPixels(d.baseline.Image, frame.Image, d.tolerance)
	if err != nil {
		d.log.Error().Err(err).Msg("Cannot compare screenshots")
		return false
	}
	d.log.Debug().Int("changed_pixels", changed).Msg("Pixel difference")

	if changed > d.threshold {
		d.baseline = frame
		d.lastAccepted = now
		return true
	}

	d.log.Debug().Msg("No chat update detected")
	return false
}

// Baseline returns the frame new captures are compared against, or nil
func (d *ChangeDetector) Baseline() *Frame {
	return d.baseline
}

// LastAccepted returns when a change was last accepted (zero if never)
func (d *ChangeDetector) LastAccepted() time.Time {
	return d.lastAccepted
}

// Reset forgets the baseline and debounce state
func (d *ChangeDetector) Reset() {
	d.baseline = nil
	d.lastAccepted = time.Time{}
}
