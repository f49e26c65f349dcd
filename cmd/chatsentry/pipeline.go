package main

import (
	"github.com/chatsentry/chatsentry/internal/alert"
	"github.com/chatsentry/chatsentry/internal/capture"
	"github.com/chatsentry/chatsentry/internal/config"
	"github.com/chatsentry/chatsentry/internal/database"
	"github.com/chatsentry/chatsentry/internal/imaging"
	"github.com/chatsentry/chatsentry/internal/judge"
	"github.com/chatsentry/chatsentry/internal/logger"
	"github.com/chatsentry/chatsentry/internal/monitor"
	"github.com/chatsentry/chatsentry/internal/ocr"
	"github.com/chatsentry/chatsentry/internal/sentry"
	"github.com/chatsentry/chatsentry/pkg/window"

	"github.com/rs/zerolog"
)

func newOCRProcessor(cfg *config.Config, log zerolog.Logger) *ocr.Processor {
	extractor := ocr.NewTesseractExtractor(cfg.OCR.Command, cfg.OCR.Language)
	if !extractor.Available() {
		log.Warn().Str("command", cfg.OCR.Command).Msg("OCR command not found in PATH, text extraction will fail")
	}
	store := ocr.NewResultStoreIn(cfg.Paths.OCRResults)
	return ocr.NewProcessor(cfg.OCR, extractor, store, logger.Component(log, "ocr"))
}

func newJudgeService(cfg *config.Config, log zerolog.Logger) *judge.Service {
	analyzer := judge.NewOpenAIAnalyzer(cfg.AI, logger.Component(log, "ai"))
	return judge.NewService(analyzer, cfg.AI.Prompt, cfg.Paths.Judgments, logger.Component(log, "judge"))
}

// newPipeline builds the monitor loop with every stage wired to its real implementation
func newPipeline(cfg *config.Config, manager window.Manager, repo *database.Repository, log zerolog.Logger) *sentry.Service {
	detector := monitor.NewChangeDetector(
		cfg.Thresholds.ChangeDetection,
		cfg.Thresholds.PixelTolerance,
		cfg.Thresholds.DebounceInterval,
		logger.Component(log, "detector"),
	)

	capturer := capture.NewService(cfg, manager, imaging.NewSaver(), logger.Component(log, "capture"))
	player := alert.NewPlayer(cfg.Alert, logger.Component(log, "alert"))

	return sentry.NewService(
		cfg,
		detector,
		capturer,
		newOCRProcessor(cfg, log),
		newJudgeService(cfg, log),
		player,
		repo,
		logger.Component(log, "sentry"),
	)
}
