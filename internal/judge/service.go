// Package judge asks a remote model whether captured chat content warrants an alert.
package judge

import (
	"context"
	"strings"

	"github.com/chatsentry/chatsentry/internal/imaging"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Result is the outcome of one judgment
type Result struct {
	Positive  bool   `json:"positive"`
	Response  string `json:"response"`
	Text      string `json:"text,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
	CopyPath  string `json:"copy_path,omitempty"`
}

// IsPositive reports whether a model answer counts as a yes
func IsPositive(response string) bool {
	return strings.Contains(strings.ToLower(response), "yes")
}

// Service applies the configured prompt and interprets answers
type Service struct {
	analyzer       Analyzer
	prompt         string
	judgmentFolder string
	log            zerolog.Logger
}

// NewService creates a judgment service. Positive image judgments are copied
// into judgmentFolder.
func NewService(analyzer Analyzer, prompt, judgmentFolder string, log zerolog.Logger) *Service {
	return &Service{
		analyzer:       analyzer,
		prompt:         prompt,
		judgmentFolder: judgmentFolder,
		log:            log,
	}
}

// AnalyzeText judges OCR text. Empty text is negative without a model call.
func (s *Service) AnalyzeText(ctx context.Context, text string) (Result, error) {
	result := Result{Text: text}
	if strings.TrimSpace(text) == "" {
		s.log.Warn().Msg("No text provided for analysis")
		return result, nil
	}

	response, err := s.analyzer.AnalyzeText(ctx, text, s.prompt)
	if err != nil {
		return result, errors.Wrap(err, "text analysis failed")
	}

	result.Response = response
	result.Positive = IsPositive(response)
	if result.Positive {
		s.log.Info().Str("text", text).Msg("Model answered yes")
	} else {
		s.log.Debug().Str("response", response).Msg("Model answered no")
	}
	return result, nil
}

// AnalyzeImage judges a saved screenshot, copying it to the judgments
// folder when the answer is positive
func (s *Service) AnalyzeImage(ctx context.Context, path string) (Result, error) {
	result := Result{ImagePath: path}

	img, err := imaging.LoadPNG(path)
	if err != nil {
		return result, err
	}
	encoded, err := imaging.EncodeBase64(img)
	if err != nil {
		return result, err
	}

	response, err := s.analyzer.AnalyzeImage(ctx, encoded, s.prompt)
	if err != nil {
		return result, errors.Wrap(err, "image analysis failed")
	}

	result.Response = response
	result.Positive = IsPositive(response)
	if !result.Positive {
		return result, nil
	}

	s.log.Info().Str("image", path).Msg("Model answered yes")
	copied, err := imaging.CopyImage(path, s.judgmentFolder)
	if err != nil {
		return result, errors.Wrap(err, "failed to keep judged image")
	}
	result.CopyPath = copied
	return result, nil
}
