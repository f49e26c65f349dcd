package alert

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/chatsentry/chatsentry/internal/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type invocation struct {
	name string
	args []string
}

func newTestPlayer(cfg config.AlertConfig, available map[string]bool, runErr error) (*Player, *[]invocation, *bytes.Buffer) {
	var buf bytes.Buffer
	p := NewPlayer(cfg, zerolog.New(&buf))

	var calls []invocation
	p.lookPath = func(name string) (string, error) {
		if available[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
	p.run = func(ctx context.Context, name string, args ...string) error {
		calls = append(calls, invocation{name, args})
		return runErr
	}
	return p, &calls, &buf
}

func TestPlayAlertAutodetect(t *testing.T) {
	cfg := config.AlertConfig{Enabled: true, SoundFile: "alert.wav"}
	p, calls, _ := newTestPlayer(cfg, map[string]bool{"aplay": true, "afplay": true}, nil)

	p.PlayAlert(context.Background())

	assert.Equal(t, []invocation{{"/usr/bin/aplay", []string{"alert.wav"}}}, *calls)
}

func TestPlayAlertConfiguredCommand(t *testing.T) {
	cfg := config.AlertConfig{Enabled: true, SoundFile: "ding.wav", Command: "mpv --no-video"}
	p, calls, _ := newTestPlayer(cfg, nil, nil)

	p.PlayAlert(context.Background())
	p.PlayAlert(context.Background())

	assert.Equal(t, []invocation{
		{"mpv", []string{"--no-video", "ding.wav"}},
		{"mpv", []string{"--no-video", "ding.wav"}},
	}, *calls)
}

func TestPlayAlertDisabled(t *testing.T) {
	p, calls, _ := newTestPlayer(config.AlertConfig{Enabled: false, SoundFile: "alert.wav"}, map[string]bool{"paplay": true}, nil)

	p.PlayAlert(context.Background())

	assert.Empty(t, *calls)
}

func TestPlayAlertNoPlayer(t *testing.T) {
	p, calls, logs := newTestPlayer(config.AlertConfig{Enabled: true, SoundFile: "alert.wav"}, nil, nil)

	p.PlayAlert(context.Background())

	assert.Empty(t, *calls)
	assert.Contains(t, logs.String(), "no audio player found")
}

func TestPlayAlertFailureIsSwallowed(t *testing.T) {
	cfg := config.AlertConfig{Enabled: true, SoundFile: "missing.wav"}
	p, calls, logs := newTestPlayer(cfg, map[string]bool{"paplay": true}, errors.New("exit status 1"))

	assert.NotPanics(t, func() { p.PlayAlert(context.Background()) })
	assert.Len(t, *calls, 1)
	assert.Contains(t, logs.String(), "Failed to play alert")
}
