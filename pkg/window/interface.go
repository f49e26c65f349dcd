package window

import (
	"image"
)

// Handle identifies a top-level window for the platform that produced it
type Handle uintptr

// WindowInfo describes a located top-level window. X and Y are screen
// coordinates of the client origin.
type WindowInfo struct {
	Handle Handle
	Title  string
	X      int
	Y      int
	Width  int
	Height int
}

// Region is a rectangle relative to a window's client origin
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect converts the region to an image.Rectangle in window coordinates
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Within reports whether the region lies inside a window of the given size
func (r Region) Within(width, height int) bool {
	return r.Width > 0 && r.Height > 0 &&
		r.X >= 0 && r.Y >= 0 &&
		r.X+r.Width <= width && r.Y+r.Height <= height
}

// Manager is the interface every platform window integration must satisfy
type Manager interface {
	// FindWindow looks up a top-level window by exact title.
	// It returns nil, nil when no such window exists.
	FindWindow(title string) (*WindowInfo, error)

	// CaptureScreenshot grabs the window contents, cropped to region when it is non-nil
	CaptureScreenshot(handle Handle, region *Region) (image.Image, error)

	// SimulateClick sends a left click at window-relative coordinates
	SimulateClick(handle Handle, x, y int) error

	// IsAvailable checks if this manager can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type ("x11", ...)
	GetDisplayServer() string

	// Close cleans up any resources used by the manager
	Close() error
}
