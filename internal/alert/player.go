// Package alert plays a notification sound when a judgment is positive.
package alert

import (
	"context"
	"os/exec"
	"strings"

	"github.com/chatsentry/chatsentry/internal/config"

	"github.com/rs/zerolog"
)

var defaultPlayers = []string{"paplay", "aplay", "afplay"}

// Player runs an external audio player on the configured sound file.
// Playback is best-effort: failures are logged, never returned.
type Player struct {
	enabled   bool
	soundFile string
	command   []string
	log       zerolog.Logger

	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// NewPlayer creates a player from the alert config. An empty command picks
// the first of paplay, aplay or afplay found in PATH.
func NewPlayer(cfg config.AlertConfig, log zerolog.Logger) *Player {
	return &Player{
		enabled:   cfg.Enabled,
		soundFile: cfg.SoundFile,
		command:   strings.Fields(cfg.Command),
		log:       log,
		lookPath:  exec.LookPath,
		run:       runCommand,
	}
}

// PlayAlert plays the sound and waits for the player to exit
func (p *Player) PlayAlert(ctx context.Context) {
	if !p.enabled {
		return
	}

	name, args, ok := p.resolve()
	if !ok {
		p.log.Error().Strs("tried", defaultPlayers).Msg("Failed to play alert: no audio player found")
		return
	}

	args = append(args, p.soundFile)
	if err := p.run(ctx, name, args...); err != nil {
		p.log.Error().Err(err).Str("player", name).Str("sound", p.soundFile).Msg("Failed to play alert")
		return
	}
	p.log.Info().Msg("Played alert sound")
}

func (p *Player) resolve() (string, []string, bool) {
	if len(p.command) > 0 {
		return p.command[0], append([]string(nil), p.command[1:]...), true
	}
	for _, candidate := range defaultPlayers {
		if path, err := p.lookPath(candidate); err == nil {
			return path, nil, true
		}
	}
	return "", nil, false
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
