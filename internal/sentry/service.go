// Package sentry runs the monitoring loop: capture the chat region, detect
// changes, open and capture the details window, extract text, ask the model
// and alert on a positive answer.
package sentry

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/chatsentry/chatsentry/internal/capture"
	"github.com/chatsentry/chatsentry/internal/config"
	"github.com/chatsentry/chatsentry/internal/imaging"
	"github.com/chatsentry/chatsentry/internal/judge"
	"github.com/chatsentry/chatsentry/internal/models"
	"github.com/chatsentry/chatsentry/internal/monitor"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// State of the loop
type State int

const (
	Idle State = iota
	Processing
)

func (s State) String() string {
	if s == Processing {
		return "processing"
	}
	return "idle"
}

// Capturer grabs the chat region and the details window
type Capturer interface {
	CaptureChatRegion(ctx context.Context) *monitor.Frame
	CaptureDetails(ctx context.Context) *capture.Result
}

// TextExtractor recognizes text in a captured details window
type TextExtractor interface {
	Process(ctx context.Context, img image.Image, filename string) (string, error)
}

// Judge decides whether recognized text deserves an alert
type Judge interface {
	AnalyzeText(ctx context.Context, text string) (judge.Result, error)
}

// Alerter notifies the user
type Alerter interface {
	PlayAlert(ctx context.Context)
}

// Store persists cycle outcomes
type Store interface {
	CreateJudgment(j *models.Judgment) error
	MarkAlerted(id uint) error
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Stats summarizes the loop since it started
type Stats struct {
	State        string    `json:"state"`
	Running      bool      `json:"running"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	Cycles       int64     `json:"cycles"`
	Changes      int64     `json:"changes"`
	Judgments    int64     `json:"judgments"`
	Positives    int64     `json:"positives"`
	Errors       int64     `json:"errors"`
	LastChange   time.Time `json:"last_change,omitempty"`
	LastJudgment time.Time `json:"last_judgment,omitempty"`
	WindowSeen   bool      `json:"window_seen"`
}

// Service is the orchestrator. One goroutine owns the detector and all UI
// automation; the judgment runs on a worker the loop waits for.
type Service struct {
	pollInterval   time.Duration
	judgmentFolder string

	detector *monitor.ChangeDetector
	capturer Capturer
	ocr      TextExtractor
	judge    Judge
	alerter  Alerter
	store    Store
	log      zerolog.Logger

	saver *imaging.Saver
	now   func() time.Time

	mu       sync.RWMutex
	state    State
	running  bool
	stopChan chan struct{}
	stats    Stats
}

// NewService wires the pipeline. store may be nil to skip persistence.
func NewService(
	cfg *config.Config,
	detector *monitor.ChangeDetector,
	capturer Capturer,
	ocr TextExtractor,
	judgment Judge,
	alerter Alerter,
	store Store,
	log zerolog.Logger,
) *Service {
	return &Service{
		pollInterval:   cfg.App.PollingInterval,
		judgmentFolder: cfg.Paths.Judgments,
		detector:       detector,
		capturer:       capturer,
		ocr:            ocr,
		judge:          judgment,
		alerter:        alerter,
		store:          store,
		log:            log,
		saver:          imaging.NewSaver(),
		now:            time.Now,
		stopChan:       make(chan struct{}),
	}
}

// Start runs cycles until ctx is cancelled or Stop is called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("monitor is already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.stats.StartedAt = s.now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.state = Idle
		s.mu.Unlock()
	}()

	s.log.Info().Dur("poll_interval", s.pollInterval).Msg("Starting chat monitor")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Monitor stopped by context")
			return ctx.Err()

		case <-stop:
			s.log.Info().Msg("Monitor stopped")
			return nil

		case <-timer.C:
			s.RunCycle(ctx)
			timer.Reset(s.pollInterval)
		}
	}
}

// Stop ends a running loop
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		select {
		case <-s.stopChan:
		default:
			close(s.stopChan)
		}
	}
}

// IsRunning reports whether Start is active
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// State returns Processing while a detected change is being handled
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stats returns a snapshot of the loop counters
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := s.stats
	stats.State = s.state.String()
	stats.Running = s.running
	return stats
}

// RunCycle performs one poll. Failures are logged and stored, and a panic is
// recovered so the loop keeps going. It returns the judgment when one was made.
func (s *Service) RunCycle(ctx context.Context) (result *judge.Result) {
	defer func() {
		if r := recover(); r != nil {
			err := &stageError{stage: "cycle", err: fmt.Errorf("panic: %v", r)}
			s.log.Error().Str("stack", string(debug.Stack())).Interface("panic", r).Msg("Recovered from panic in monitor cycle")
			s.storeError(err)
			result = nil
		}
		s.setState(Idle)
	}()

	s.bump(func(st *Stats) { st.Cycles++ })

	res, err := s.cycle(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.log.Error().Err(err).Str("stage", stageOf(err)).Str("kind", Kind(err)).Msg("Monitor cycle failed")
		s.storeError(err)
	}
	return res
}

func (s *Service) cycle(ctx context.Context) (*judge.Result, error) {
	frame := s.capturer.CaptureChatRegion(ctx)
	if frame == nil {
		s.windowLost()
		return nil, nil
	}
	s.windowFound()

	if !s.detector.CheckUpdate(frame) {
		return nil, nil
	}

	s.setState(Processing)
	s.bump(func(st *Stats) {
		st.Changes++
		st.LastChange = s.now()
	})
	s.log.Info().Msg("Chat update detected")

	details := s.capturer.CaptureDetails(ctx)
	if details == nil {
		return nil, failed("capture", ErrCaptureFailure, nil, "details window could not be captured")
	}

	filename := filepath.Base(details.Path)
	if details.Path == "" {
		filename = imaging.FilenameAt(details.CapturedAt)
	}

	text, err := s.ocr.Process(ctx, details.Frame, filename)
	if err != nil {
		return nil, failed("ocr", ErrExternalService, err, "text extraction failed")
	}
	if text == "" {
		return nil, nil
	}

	res, err := s.awaitJudgment(ctx, text)
	if err != nil {
		return nil, failed("judge", ErrExternalService, err, "judgment failed")
	}
	res.ImagePath = details.Path

	s.bump(func(st *Stats) {
		st.Judgments++
		st.LastJudgment = s.now()
		if res.Positive {
			st.Positives++
		}
	})

	record := &models.Judgment{
		Timestamp:      s.now(),
		Source:         models.SourceText,
		ScreenshotPath: details.Path,
		Text:           res.Text,
		Response:       res.Response,
		Positive:       res.Positive,
	}

	if res.Positive {
		s.keepPositive(&res, record, details.Frame)
	}
	s.storeJudgment(record)

	if res.Positive {
		s.alerter.PlayAlert(ctx)
		record.Alerted = true
		if s.store != nil && record.ID != 0 {
			if err := s.store.MarkAlerted(record.ID); err != nil {
				s.log.Warn().Err(err).Msg("Failed to mark judgment as alerted")
			}
		}
	}

	return &res, nil
}

// awaitJudgment runs the model call on a worker goroutine and waits for it
func (s *Service) awaitJudgment(ctx context.Context, text string) (judge.Result, error) {
	var res judge.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, err = s.judge.AnalyzeText(gctx, text)
		return err
	})
	err := g.Wait()
	return res, err
}

// keepPositive copies the saved screenshot into the judgments folder, or
// saves the in-memory frame there when the screenshot never reached disk.
func (s *Service) keepPositive(res *judge.Result, record *models.Judgment, frame *image.Gray) {
	var (
		copied string
		err    error
	)
	switch {
	case res.ImagePath != "":
		copied, err = imaging.CopyImage(res.ImagePath, s.judgmentFolder)
	case frame != nil:
		copied, err = s.saver.Save(frame, s.judgmentFolder, true)
	default:
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to copy judged screenshot")
		s.storeError(failed("judge", ErrTransientIO, err, "copy to judgments folder failed"))
		return
	}
	res.CopyPath = copied
	record.JudgmentPath = copied
	s.log.Info().Str("path", copied).Msg("Kept screenshot of positive judgment")
}

func (s *Service) windowLost() {
	s.mu.Lock()
	seen := s.stats.WindowSeen
	s.stats.WindowSeen = false
	s.mu.Unlock()

	if seen {
		s.log.Warn().Msg("Chat window lost, resetting change detector")
		s.detector.Reset()
	}
}

func (s *Service) windowFound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.WindowSeen = true
}

func (s *Service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Service) bump(update func(*Stats)) {
	s.mu.Lock()
	update(&s.stats)
	s.mu.Unlock()
}

func (s *Service) storeJudgment(j *models.Judgment) {
	if s.store == nil {
		return
	}
	if err := s.store.CreateJudgment(j); err != nil {
		s.log.Error().Err(err).Msg("Failed to store judgment in database")
	}
}

func (s *Service) storeError(err error) {
	s.bump(func(st *Stats) { st.Errors++ })
	if s.store == nil {
		return
	}

	errorLog := &models.ErrorLog{
		Timestamp: s.now(),
		Stage:     stageOf(err),
		Kind:      Kind(err),
		ErrorMsg:  err.Error(),
	}
	if dbErr := s.store.CreateErrorLog(errorLog); dbErr != nil {
		s.log.Error().Err(dbErr).AnErr("cause", err).Msg("Failed to store error in database")
	}
}
