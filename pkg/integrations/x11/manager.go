package x11

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"

	"github.com/chatsentry/chatsentry/pkg/window"
)

const maxClientListLength = 4096

// Manager implements window.Manager on top of a raw X11 connection
type Manager struct {
	mu       sync.Mutex
	conn     *xgb.Conn
	root     xproto.Window
	atoms    map[string]xproto.Atom
	hasXTest bool
}

// NewManager connects to the X server named by $DISPLAY
func NewManager() (*Manager, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	m := &Manager{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom),
	}

	atomNames := []string{
		"_NET_CLIENT_LIST",
		"_NET_WM_NAME",
		"WM_NAME",
		"UTF8_STRING",
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		m.atoms[name] = reply.Atom
	}

	// XTEST is only needed for clicks; capture works without it
	m.hasXTest = xtest.Init(conn) == nil

	return m, nil
}

// IsAvailable checks if the X connection is usable
func (m *Manager) IsAvailable() bool {
	return m.conn != nil
}

// GetDisplayServer returns "x11"
func (m *Manager) GetDisplayServer() string {
	return "x11"
}

// FindWindow returns the first managed top-level window whose title matches exactly
func (m *Manager) FindWindow(title string) (*window.WindowInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates, err := m.topLevelWindows()
	if err != nil {
		return nil, err
	}

	for _, win := range candidates {
		if m.getWindowName(win) != title {
			continue
		}
		info, err := m.geometry(win)
		if err != nil {
			// window vanished between listing and query
			continue
		}
		info.Title = title
		return info, nil
	}

	return nil, nil
}

// CaptureScreenshot grabs the window contents with GetImage
func (m *Manager) CaptureScreenshot(handle window.Handle, region *window.Region) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	win := xproto.Window(handle)
	info, err := m.geometry(win)
	if err != nil {
		return nil, err
	}

	area := window.Region{Width: info.Width, Height: info.Height}
	if region != nil {
		if !region.Within(info.Width, info.Height) {
			return nil, fmt.Errorf("region %+v outside window %dx%d", *region, info.Width, info.Height)
		}
		area = *region
	}

	reply, err := xproto.GetImage(m.conn, xproto.ImageFormatZPixmap, xproto.Drawable(win),
		int16(area.X), int16(area.Y), uint16(area.Width), uint16(area.Height), 0xffffffff).Reply()
	if err != nil {
		return nil, fmt.Errorf("GetImage failed: %w", err)
	}

	return bgrxToRGBA(reply.Data, area.Width, area.Height)
}

// SimulateClick warps the pointer into the window and fakes a left button press/release
func (m *Manager) SimulateClick(handle window.Handle, x, y int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasXTest {
		return fmt.Errorf("XTEST extension not available")
	}

	win := xproto.Window(handle)
	if err := xproto.WarpPointerChecked(m.conn, xproto.WindowNone, win, 0, 0, 0, 0,
		int16(x), int16(y)).Check(); err != nil {
		return fmt.Errorf("failed to move pointer: %w", err)
	}

	if err := xtest.FakeInputChecked(m.conn, xproto.ButtonPress, 1, 0, m.root, 0, 0, 0).Check(); err != nil {
		return fmt.Errorf("failed to press button: %w", err)
	}
	if err := xtest.FakeInputChecked(m.conn, xproto.ButtonRelease, 1, 0, m.root, 0, 0, 0).Check(); err != nil {
		return fmt.Errorf("failed to release button: %w", err)
	}

	return nil
}

// Close cleans up resources
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	return nil
}

func (m *Manager) getProperty(win xproto.Window, atom xproto.Atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(m.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

// topLevelWindows prefers the EWMH client list and falls back to the root's children
func (m *Manager) topLevelWindows() ([]xproto.Window, error) {
	data, err := m.getProperty(m.root, m.atoms["_NET_CLIENT_LIST"], xproto.AtomWindow, maxClientListLength)
	if err == nil {
		if wins := parseWindowList(data); len(wins) > 0 {
			return wins, nil
		}
	}

	tree, err := xproto.QueryTree(m.conn, m.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}
	return tree.Children, nil
}

func (m *Manager) getWindowName(win xproto.Window) string {
	data, err := m.getProperty(win, m.atoms["_NET_WM_NAME"], m.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = m.getProperty(win, m.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	return ""
}

func (m *Manager) geometry(win xproto.Window) (*window.WindowInfo, error) {
	geom, err := xproto.GetGeometry(m.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}

	origin, err := xproto.TranslateCoordinates(m.conn, win, m.root, 0, 0).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to translate window origin: %w", err)
	}

	return &window.WindowInfo{
		Handle: window.Handle(win),
		X:      int(origin.DstX),
		Y:      int(origin.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// parseWindowList decodes a CARDINAL[]/WINDOW[] property value
func parseWindowList(data []byte) []xproto.Window {
	wins := make([]xproto.Window, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		wins = append(wins, xproto.Window(binary.LittleEndian.Uint32(data[i:])))
	}
	return wins
}

// bgrxToRGBA converts a 32bpp ZPixmap (B, G, R, pad) into an RGBA image
func bgrxToRGBA(data []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if len(data) < width*height*4 {
		return nil, fmt.Errorf("short image data: got %d bytes, want %d", len(data), width*height*4)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			img.SetRGBA(x, y, color.RGBA{R: data[i+2], G: data[i+1], B: data[i], A: 255})
		}
	}
	return img, nil
}
