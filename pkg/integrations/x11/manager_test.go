package x11

import (
	"image/color"
	"os"
	"testing"

	"github.com/jezek/xgb/xproto"

	"github.com/chatsentry/chatsentry/pkg/window"
)

func TestManagerInterface(t *testing.T) {
	var _ window.Manager = (*Manager)(nil)
}

func TestGetDisplayServer(t *testing.T) {
	m := &Manager{}
	if got := m.GetDisplayServer(); got != "x11" {
		t.Errorf("GetDisplayServer() = %s, want x11", got)
	}
}

func TestIsAvailableWithoutConnection(t *testing.T) {
	m := &Manager{}
	if m.IsAvailable() {
		t.Error("IsAvailable() = true for a manager without connection")
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestSimulateClickWithoutXTest(t *testing.T) {
	m := &Manager{}
	if err := m.SimulateClick(1, 10, 10); err == nil {
		t.Error("SimulateClick() succeeded without XTEST")
	}
}

func TestParseWindowList(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []xproto.Window
	}{
		{"empty", nil, []xproto.Window{}},
		{"single", []byte{0x01, 0x00, 0x60, 0x00}, []xproto.Window{0x600001}},
		{"two", []byte{0x01, 0, 0, 0, 0x02, 0, 0, 0}, []xproto.Window{1, 2}},
		{"trailing garbage ignored", []byte{0x05, 0, 0, 0, 0xff}, []xproto.Window{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseWindowList(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("parseWindowList() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("window[%d] = %#x, want %#x", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBGRXToRGBA(t *testing.T) {
	// 2x1 image: pure blue, then pure red
	data := []byte{
		0xff, 0x00, 0x00, 0x00,
		0x00, 0x00, 0xff, 0x00,
	}

	img, err := bgrxToRGBA(data, 2, 1)
	if err != nil {
		t.Fatalf("bgrxToRGBA() error: %v", err)
	}

	if got := img.RGBAAt(0, 0); got != (color.RGBA{B: 0xff, A: 0xff}) {
		t.Errorf("pixel 0 = %v, want blue", got)
	}
	if got := img.RGBAAt(1, 0); got != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Errorf("pixel 1 = %v, want red", got)
	}
}

func TestBGRXToRGBAShortData(t *testing.T) {
	if _, err := bgrxToRGBA(make([]byte, 7), 2, 1); err == nil {
		t.Error("expected error for short data")
	}
	if _, err := bgrxToRGBA(nil, 0, 1); err == nil {
		t.Error("expected error for empty size")
	}
}

func TestNewManager(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("no X display available")
	}

	m, err := NewManager()
	if err != nil {
		t.Logf("NewManager() error (may be expected): %v", err)
		return
	}
	defer m.Close()

	info, err := m.FindWindow("chatsentry-window-that-does-not-exist")
	if err != nil {
		t.Errorf("FindWindow() error: %v", err)
	}
	if info != nil {
		t.Errorf("FindWindow() = %+v, want nil", info)
	}
}
