package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"prepmic/internal/ports"
)

// FFPlayPlayer plays raw PCM buffers through an ffplay subprocess fed on
// stdin. ffplay exits on its own once the buffer is drained.
type FFPlayPlayer struct {
	command string
}

func NewFFPlayPlayer(command string) *FFPlayPlayer {
	if command == "" {
		command = "ffplay"
	}
	return &FFPlayPlayer{command: command}
}

func (p *FFPlayPlayer) Play(ctx context.Context, pcm []byte, cfg ports.PlaybackConfig) (ports.Playback, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nodisp",
		"-autoexit",
		"-f", "s16le",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.Channels),
		"-i", "-",
	}

	cmd := exec.CommandContext(ctx, p.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffplay stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffplay: %w", err)
	}

	session := &ffplaySession{
		process: cmd.Process,
		done:    make(chan error, 1),
	}

	go func() {
		// A write failure here means the process already exited; the Wait
		// goroutine reports that.
		_, _ = io.Copy(stdin, bytes.NewReader(pcm))
		_ = stdin.Close()
	}()

	go func() {
		err := cmd.Wait()
		if session.stopped.Load() {
			err = nil
		} else if err != nil && stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		session.done <- err
	}()

	return session, nil
}

type ffplaySession struct {
	process *os.Process
	done    chan error

	stopOnce sync.Once
	stopped  atomic.Bool
}

func (s *ffplaySession) Done() <-chan error {
	return s.done
}

func (s *ffplaySession) Stop() error {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if s.process != nil {
			_ = s.process.Kill()
		}
	})
	return nil
}
