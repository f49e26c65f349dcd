package platform

import (
	"fmt"
	"os"
	"runtime"

	"github.com/chatsentry/chatsentry/pkg/integrations/x11"
	"github.com/chatsentry/chatsentry/pkg/window"
)

// New returns the window manager for the running desktop session
func New() (window.Manager, error) {
	if runtime.GOOS != "linux" && runtime.GOOS != "freebsd" {
		return nil, fmt.Errorf("no window manager integration for %s", runtime.GOOS)
	}

	switch DetectDisplayServer() {
	case "x11":
		return x11.NewManager()
	case "wayland":
		// Wayland has no client-side capture or input injection; XWayland windows still work
		if os.Getenv("DISPLAY") != "" {
			return x11.NewManager()
		}
		return nil, fmt.Errorf("wayland session without XWayland is not supported")
	default:
		return nil, fmt.Errorf("no display server detected (DISPLAY and WAYLAND_DISPLAY unset)")
	}
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
