// Package ocr extracts text from details-window captures and keeps a JSON
// log of every recognition result.
package ocr

import (
	"context"
	"image"

	"github.com/chatsentry/chatsentry/internal/config"

	"github.com/rs/zerolog"
)

// Processor preprocesses an image, runs the extractor and records the result
type Processor struct {
	extractor Extractor
	store     *ResultStore
	cfg       config.OCRConfig
	log       zerolog.Logger
}

// NewProcessor wires an extractor to a result store. store may be nil.
func NewProcessor(cfg config.OCRConfig, extractor Extractor, store *ResultStore, log zerolog.Logger) *Processor {
	return &Processor{
		extractor: extractor,
		store:     store,
		cfg:       cfg,
		log:       log,
	}
}

// Process returns the recognized text, or "" when nothing was found.
// Extraction failures are returned; a failure to record the result is only logged.
func (p *Processor) Process(ctx context.Context, img image.Image, filename string) (string, error) {
	prepared := Preprocess(img, p.cfg)

	text, err := p.extractor.ExtractText(ctx, prepared, filename)
	if err != nil {
		return "", err
	}

	if text == "" {
		p.log.Warn().Str("file", filename).Msg("No text recognized")
	} else {
		p.log.Info().Str("file", filename).Int("chars", len([]rune(text))).Msg("Text recognized")
	}

	if p.store != nil {
		if err := p.store.Append(filename, text); err != nil {
			p.log.Error().Err(err).Str("path", p.store.Path()).Msg("Failed to record ocr result")
		}
	}
	return text, nil
}
