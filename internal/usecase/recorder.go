package usecase

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"prepmic/internal/domain"
	"prepmic/internal/ports"
)

// Recorder captures one answer segment per question from the acquired input
// device and retains all segments for the session in question order.
type Recorder struct {
	capture   ports.AudioCapture
	cfg       ports.AudioConfig
	chunkSize int
	log       *zap.Logger

	mu       sync.Mutex
	active   *captureRun
	segments []domain.AnswerSegment
}

type captureRun struct {
	session ports.AudioSession
	index   int
	data    []byte
	done    chan struct{}
}

func NewRecorder(capture ports.AudioCapture, cfg ports.AudioConfig, chunkSize int, log *zap.Logger) *Recorder {
	if chunkSize < 256 {
		chunkSize = 4096
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{capture: capture, cfg: cfg, chunkSize: chunkSize, log: log}
}

// Begin starts capturing the answer for the given question index into a
// fresh buffer. Beginning while a capture is already running is a no-op.
func (r *Recorder) Begin(ctx context.Context, index int) error {
	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	session, err := r.capture.Start(ctx, r.cfg)
	if err != nil {
		return err
	}

	run := &captureRun{session: session, index: index, done: make(chan struct{})}

	r.mu.Lock()
	if r.active != nil {
		// Lost the race against a concurrent Begin.
		r.mu.Unlock()
		_ = session.Stop()
		return nil
	}
	r.active = run
	r.mu.Unlock()

	go r.pump(run)
	return nil
}

// Finish stops the running capture and returns its segment. Finishing while
// no capture is active yields an empty segment rather than an error, which
// makes double-invocation harmless.
func (r *Recorder) Finish(index int) domain.AnswerSegment {
	r.mu.Lock()
	run := r.active
	r.active = nil
	r.mu.Unlock()

	segment := domain.AnswerSegment{QuestionIndex: index}
	if run != nil {
		if err := r.stopRun(run); err != nil {
			r.log.Warn("audio capture did not stop cleanly", zap.Int("question", run.index), zap.Error(err))
		}
		segment.QuestionIndex = run.index
		segment.Data = run.data
	}

	r.mu.Lock()
	r.segments = append(r.segments, segment)
	r.mu.Unlock()
	return segment
}

// Discard stops any running capture without storing a segment.
func (r *Recorder) Discard() {
	r.mu.Lock()
	run := r.active
	r.active = nil
	r.mu.Unlock()

	if run != nil {
		_ = r.stopRun(run)
	}
}

// Recording reports whether a capture is currently running.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Segments returns the ordered answer segments captured so far.
func (r *Recorder) Segments() []domain.AnswerSegment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AnswerSegment, len(r.segments))
	copy(out, r.segments)
	return out
}

// Combined concatenates every segment into one continuous PCM track.
func (r *Recorder) Combined() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []byte
	for _, segment := range r.segments {
		out = append(out, segment.Data...)
	}
	return out
}

func (r *Recorder) pump(run *captureRun) {
	defer close(run.done)

	buf := make([]byte, r.chunkSize)
	for {
		n, err := run.session.Read(buf)
		if n > 0 {
			run.data = append(run.data, buf[:n]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.log.Warn("audio capture read failed", zap.Int("question", run.index), zap.Error(err))
			}
			return
		}
	}
}

func (r *Recorder) stopRun(run *captureRun) error {
	err := run.session.Stop()
	<-run.done
	return err
}
