package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voicebot-widget/internal/audio"
	"github.com/lexiqai/voicebot-widget/internal/observability"
)

// ErrClosed is returned by Play on a released track.
var ErrClosed = errors.New("track is closed")

// CommandPlayer plays clips by running an external command with the WAV file path
// appended (aplay, afplay, paplay, ffplay -nodisp -autoexit ...).
type CommandPlayer struct {
	name    string
	args    []string
	tempDir string
	log     zerolog.Logger
}

// NewCommandPlayer parses a command line such as "aplay -q".
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("player command is empty")
	}
	return &CommandPlayer{
		name: fields[0],
		args: fields[1:],
		log:  observability.Component("playback"),
	}, nil
}

// Load writes the clip to a temporary file the command can read.
func (p *CommandPlayer) Load(clip *audio.Clip) (Track, error) {
	f, err := os.CreateTemp(p.tempDir, "voicebot-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := f.Write(clip.Raw); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write audio file: %w", err)
	}

	observability.RecordAudioBytes("out", int64(len(clip.Raw)))
	p.log.Debug().
		Str("file", f.Name()).
		Uint32("sample_rate", clip.SampleRate).
		Uint16("channels", clip.Channels).
		Dur("duration", clip.Duration()).
		Msg("Audio clip loaded")

	return &commandTrack{player: p, path: f.Name()}, nil
}

type commandTrack struct {
	player *CommandPlayer
	path   string

	mu      sync.Mutex
	cancel  context.CancelFunc
	run     uint64 // incremented per Play; stale process exits are ignored
	onEnded func()
	closed  bool
}

func (t *commandTrack) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	t.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	args := append(append([]string{}, t.player.args...), t.path)
	cmd := exec.CommandContext(ctx, t.player.name, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start %s: %w", t.player.name, err)
	}

	t.run++
	t.cancel = cancel
	go t.wait(cmd, t.run)
	return nil
}

func (t *commandTrack) wait(cmd *exec.Cmd, run uint64) {
	err := cmd.Wait()

	t.mu.Lock()
	if run != t.run || t.cancel == nil {
		// stopped or superseded by a newer Play
		t.mu.Unlock()
		return
	}
	t.cancel()
	t.cancel = nil
	onEnded := t.onEnded
	t.mu.Unlock()

	if err != nil {
		t.player.log.Warn().Err(err).Str("player", t.player.name).Msg("Player exited with error")
	}
	if onEnded != nil {
		onEnded()
	}
}

func (t *commandTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *commandTrack) stopLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *commandTrack) OnEnded(fn func()) {
	t.mu.Lock()
	t.onEnded = fn
	t.mu.Unlock()
}

func (t *commandTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.stopLocked()
	t.closed = true
	if err := os.Remove(t.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
