// Package capture drives the details window: it screenshots the monitored
// chat region and performs the click, capture, close, restore sequence.
package capture

import (
	"context"
	"image"
	"time"

	"github.com/chatsentry/chatsentry/internal/config"
	"github.com/chatsentry/chatsentry/internal/imaging"
	"github.com/chatsentry/chatsentry/internal/monitor"
	"github.com/chatsentry/chatsentry/pkg/window"

	"github.com/rs/zerolog"
)

// Result is a captured details window
type Result struct {
	Frame      *image.Gray
	Path       string
	CapturedAt time.Time
}

// Service captures the chat region and the details window
type Service struct {
	manager    window.Manager
	app        config.AppConfig
	chatBox    config.ChatBoxConfig
	automation config.AutomationConfig
	folder     string
	saver      *imaging.Saver
	log        zerolog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewService creates a capture service bound to a window manager
func NewService(cfg *config.Config, manager window.Manager, saver *imaging.Saver, log zerolog.Logger) *Service {
	return &Service{
		manager:    manager,
		app:        cfg.App,
		chatBox:    cfg.ChatBox,
		automation: cfg.Automation,
		folder:     cfg.Paths.Screenshots,
		saver:      saver,
		log:        log,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// ChatRegion returns the monitored region inside a main window of the given height
func (s *Service) ChatRegion(windowHeight int) window.Region {
	return window.Region{
		X:      s.chatBox.X,
		Y:      windowHeight + s.chatBox.YOffset,
		Width:  s.chatBox.Width,
		Height: s.chatBox.Height,
	}
}

// CaptureChatRegion screenshots the monitored region of the main window.
// It returns nil when the window is absent or the capture fails.
func (s *Service) CaptureChatRegion(ctx context.Context) *monitor.Frame {
	main := s.findWindow(s.app.WindowTitle)
	if main == nil {
		return nil
	}

	region := s.ChatRegion(main.Height)
	if !region.Within(main.Width, main.Height) {
		s.log.Error().
			Interface("region", region).
			Int("window_width", main.Width).
			Int("window_height", main.Height).
			Msg("Chat region lies outside the main window")
		return nil
	}

	img, err := s.manager.CaptureScreenshot(main.Handle, &region)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to capture chat region")
		return nil
	}
	return &monitor.Frame{Image: img, CapturedAt: s.now()}
}

// CaptureDetails opens the details window by clicking the chat region,
// captures it as grayscale, closes it and clicks a blank spot of the main
// window. It returns nil if any step fails.
//
// ctx is only checked before the first click. Once the UI has been touched
// the sequence runs to the end so the details window is never left open.
func (s *Service) CaptureDetails(ctx context.Context) *Result {
	if ctx.Err() != nil {
		return nil
	}

	main := s.findWindow(s.app.WindowTitle)
	if main == nil {
		return nil
	}

	clickX, clickY := s.ChatRegion(main.Height).Center()
	if err := s.manager.SimulateClick(main.Handle, clickX, clickY); err != nil {
		s.log.Error().Err(err).Msg("Failed to click chat region")
		return nil
	}
	s.log.Debug().Int("x", clickX).Int("y", clickY).Msg("Clicked chat region")

	ctx = context.WithoutCancel(ctx)

	if err := s.sleep(ctx, s.automation.SettleDelay); err != nil {
		return nil
	}

	details := s.findWindow(s.app.DetailsWindowTitle)
	if details == nil {
		s.log.Error().Str("title", s.app.DetailsWindowTitle).Msg("Details window did not open")
		return nil
	}

	defer s.restoreFocus(main)

	img, err := s.manager.CaptureScreenshot(details.Handle, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to capture details window")
		return nil
	}

	result := &Result{
		Frame:      imaging.ToGray(img),
		CapturedAt: s.now(),
	}
	path, err := s.saver.Save(result.Frame, s.folder, true)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to save details screenshot")
	} else {
		result.Path = path
		s.log.Info().Str("path", path).Msg("Saved details screenshot")
	}

	closeX := details.Width - s.automation.CloseOffsetX
	closeY := s.automation.CloseOffsetY
	if err := s.manager.SimulateClick(details.Handle, closeX, closeY); err != nil {
		s.log.Error().Err(err).Msg("Failed to click close control")
		return nil
	}
	_ = s.sleep(ctx, s.automation.SettleDelay)

	if still := s.findWindow(s.app.DetailsWindowTitle); still != nil {
		s.log.Error().Msg("Details window is still open after close click")
		return nil
	}

	return result
}

func (s *Service) restoreFocus(main *window.WindowInfo) {
	x := s.chatBox.X
	y := main.Height - s.automation.BlankOffsetFromBottom
	if err := s.manager.SimulateClick(main.Handle, x, y); err != nil {
		s.log.Warn().Err(err).Msg("Failed to click blank area of main window")
	}
}

func (s *Service) findWindow(title string) *window.WindowInfo {
	info, err := s.manager.FindWindow(title)
	if err != nil {
		s.log.Error().Err(err).Str("title", title).Msg("Window lookup failed")
		return nil
	}
	if info == nil {
		s.log.Debug().Str("title", title).Msg("Window not found")
	}
	return info
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
