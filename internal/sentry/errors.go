package sentry

import (
	"context"

	"github.com/pkg/errors"
)

// Failure categories recorded with every error log
var (
	ErrNotFound        = errors.New("not found")
	ErrCaptureFailure  = errors.New("capture failure")
	ErrEmptyResult     = errors.New("empty result")
	ErrTransientIO     = errors.New("transient io")
	ErrExternalService = errors.New("external service")
)

// Kind returns the category name of err for storage
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCaptureFailure):
		return "capture_failure"
	case errors.Is(err, ErrEmptyResult):
		return "empty_result"
	case errors.Is(err, ErrTransientIO):
		return "transient_io"
	case errors.Is(err, ErrExternalService):
		return "external_service"
	default:
		return "internal"
	}
}

// stageError ties a failure to the pipeline stage that produced it
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func failed(stage string, kind error, cause error, msg string) error {
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return &stageError{stage: stage, err: errors.Wrap(kind, msg)}
}

func stageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return "cycle"
}
