package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prepmic/internal/audiocache"
	"prepmic/internal/domain"
	"prepmic/internal/ports"
)

var (
	ErrNoActiveInterview  = errors.New("no active interview session")
	ErrInterviewActive    = errors.New("an interview session is already running")
	ErrInterviewPreparing = errors.New("interview session is still preparing")
	ErrUnknownSession     = errors.New("unknown session")
)

// Config controls interview session behavior.
type Config struct {
	Audio                ports.AudioConfig
	Playback             ports.PlaybackConfig
	ChunkSize            int
	Lookahead            int
	FirstQuestionTimeout time.Duration
}

// InterviewController drives the turn-taking state machine:
// setup -> preparing -> interviewing (ai_speaking <-> user_speaking) -> completed.
// Playback and recording are never active at the same time by construction:
// recording only begins after the speaking phase for the same question has
// resolved, and advancing a turn stops both before moving on.
type InterviewController struct {
	capture   ports.AudioCapture
	player    ports.AudioPlayer
	generator ports.QuestionGenerator
	synth     ports.SpeechSynthesizer
	store     ports.SessionStore
	events    ports.EventSink
	log       *zap.Logger
	cfg       Config

	newCache func(voice domain.Voice) *audiocache.Cache

	mu          sync.Mutex
	current     *activeInterview
	finished    *finishedInterview
	lastInitErr string
}

func NewInterviewController(
	capture ports.AudioCapture,
	player ports.AudioPlayer,
	generator ports.QuestionGenerator,
	synth ports.SpeechSynthesizer,
	store ports.SessionStore,
	events ports.EventSink,
	log *zap.Logger,
	cfg Config,
) *InterviewController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = audiocache.DefaultLookahead
	}
	if cfg.FirstQuestionTimeout <= 0 {
		cfg.FirstQuestionTimeout = 20 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &InterviewController{
		capture:   capture,
		player:    player,
		generator: generator,
		synth:     synth,
		store:     store,
		events:    events,
		log:       log,
		cfg:       cfg,
	}
	c.newCache = func(voice domain.Voice) *audiocache.Cache {
		return audiocache.New(synth, voice, cfg.Lookahead, log)
	}
	return c
}

// Start validates the setup input and runs the preparing phase: acquire the
// audio device, request the question list, resolve the first question's audio
// under a timeout, then enter interviewing at question zero.
func (c *InterviewController) Start(ctx context.Context, rawCfg domain.InterviewConfig) error {
	cfg, err := ResolveConfig(rawCfg)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeSetup, err.Error())
		return err
	}

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return ErrInterviewActive
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	s := &activeInterview{
		id:     uuid.NewString(),
		cfg:    cfg,
		ctx:    sessionCtx,
		cancel: cancel,
		state:  domain.InterviewStatePreparing,
		turn:   domain.TurnProcessing,
	}
	c.current = s
	c.lastInitErr = ""
	c.mu.Unlock()

	c.events.InterviewStateChanged(domain.InterviewStatePreparing, domain.ReasonPreparing)

	if err := c.prepare(s); err != nil {
		c.failInit(s, err)
		return err
	}

	s.mu.Lock()
	s.state = domain.InterviewStateInterviewing
	s.startedAt = time.Now()
	seq := s.turnSeq
	s.mu.Unlock()

	c.events.InterviewStateChanged(domain.InterviewStateInterviewing, domain.ReasonInterviewStarted)
	go c.playQuestion(s, 0, seq)
	return nil
}

func (c *InterviewController) prepare(s *activeInterview) error {
	probe, err := c.capture.Start(s.ctx, c.cfg.Audio)
	if err != nil {
		return fmt.Errorf("audio input unavailable: %w", err)
	}
	_ = probe.Stop()

	set, err := c.generator.GenerateQuestions(s.ctx, QuestionRequestFor(s.cfg))
	if err != nil {
		return fmt.Errorf("question generation failed: %w", err)
	}
	if len(set.Questions) == 0 {
		return errors.New("question generator returned an empty list")
	}
	s.setQuestions(set)
	c.events.InterviewStateChanged(domain.InterviewStatePreparing, domain.ReasonQuestionsReady)

	s.cache = c.newCache(s.cfg.Voice)
	s.record = NewRecorder(c.capture, c.cfg.Audio, c.cfg.ChunkSize, c.log)

	firstCtx, cancel := context.WithTimeout(s.ctx, c.cfg.FirstQuestionTimeout)
	defer cancel()
	if _, err := s.cache.Ensure(firstCtx, 0, set.Questions[0]); err != nil {
		if firstCtx.Err() != nil {
			return fmt.Errorf("first question audio was not ready in time: %w", err)
		}
		// Synthesis failed outright; the opening turn degrades to silence
		// after a lazy retry instead of blocking the session.
		c.log.Warn("first question synthesis failed", zap.Error(err))
	}

	s.cache.PrefetchWindow(0, set.Questions)
	return nil
}

// playQuestion runs the ai_speaking phase for one question: await the cached
// buffer, play it, then hand the floor to the candidate. A stale turn
// sequence means the session advanced (or ended) while this ran.
func (c *InterviewController) playQuestion(s *activeInterview, index int, seq int) {
	if !s.setTurn(seq, domain.TurnAISpeaking) {
		return
	}
	c.events.TurnChanged(domain.TurnAISpeaking, index)
	s.cache.PrefetchWindow(index, s.set.Questions)

	buf, err := s.cache.Ensure(s.ctx, index, s.set.Questions[index])
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		// The interview must not get stuck on a missing question audio:
		// fall through to the candidate's turn without playback.
		c.log.Warn("question synthesis failed, skipping playback",
			zap.Int("question", index), zap.Error(err))
		c.events.SessionError(domain.ErrorCodeSynthesis, err.Error())
		c.events.InterviewStateChanged(domain.InterviewStateInterviewing, domain.ReasonQuestionPlaybackSkipped)
		c.beginAnswer(s, index, seq)
		return
	}

	playback, err := c.player.Play(s.ctx, buf, c.cfg.Playback)
	if err != nil {
		if s.ctx.Err() == nil {
			c.log.Warn("question playback failed", zap.Int("question", index), zap.Error(err))
			c.events.SessionError(domain.ErrorCodePlayback, err.Error())
			c.events.InterviewStateChanged(domain.InterviewStateInterviewing, domain.ReasonQuestionPlaybackSkipped)
			c.beginAnswer(s, index, seq)
		}
		return
	}
	if !s.setPlayback(seq, playback) {
		_ = playback.Stop()
		return
	}
	c.events.InterviewStateChanged(domain.InterviewStateInterviewing, domain.ReasonQuestionPlaying)

	select {
	case err := <-playback.Done():
		s.setPlayback(seq, nil)
		if err != nil && s.ctx.Err() == nil {
			c.log.Warn("question playback ended with error", zap.Int("question", index), zap.Error(err))
			c.events.SessionError(domain.ErrorCodePlayback, err.Error())
		}
	case <-s.ctx.Done():
		_ = playback.Stop()
		return
	}

	c.beginAnswer(s, index, seq)
}

func (c *InterviewController) beginAnswer(s *activeInterview, index int, seq int) {
	if !s.setTurn(seq, domain.TurnUserSpeaking) {
		return
	}
	c.events.TurnChanged(domain.TurnUserSpeaking, index)
	c.events.InterviewStateChanged(domain.InterviewStateInterviewing, domain.ReasonAwaitingAnswer)

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if !s.seqValid(seq) {
		// The turn advanced while the floor was being handed over;
		// starting a capture now would bleed into the next question.
		return
	}
	if err := s.record.Begin(s.ctx, index); err != nil {
		// Non-fatal: this turn's answer becomes an empty segment.
		c.log.Warn("failed to start answer recording", zap.Int("question", index), zap.Error(err))
		c.events.SessionError(domain.ErrorCodeRecording, err.Error())
	}
}

// FinishAnswer stops recording for the current question, stores its segment,
// and advances to the next question or to completion. Invoking it while the
// interviewer is still speaking interrupts playback; invoking it twice in a
// row stores an empty segment for the skipped turn. Calls made before the
// preparing phase has finished are rejected.
func (c *InterviewController) FinishAnswer(ctx context.Context) error {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return ErrNoActiveInterview
	}
	if state, _, _, _ := s.snapshot(); state == domain.InterviewStatePreparing {
		return ErrInterviewPreparing
	}

	seq, index, _ := s.bumpTurn()
	if playback := s.takePlayback(); playback != nil {
		_ = playback.Stop()
	}
	s.opMu.Lock()
	s.record.Finish(index)
	s.opMu.Unlock()
	c.events.InterviewStateChanged(domain.InterviewStateInterviewing, domain.ReasonAnswerCaptured)

	next := index + 1
	s.mu.Lock()
	total := len(s.set.Questions)
	if next < total {
		s.index = next
		s.turn = domain.TurnProcessing
	}
	s.mu.Unlock()

	if next >= total {
		return c.complete(s)
	}
	go c.playQuestion(s, next, seq)
	return nil
}

// End finishes the interview early: if the candidate's turn was reached the
// answer, recorded or not, is captured as the final segment and the session
// completes with only the questions actually asked. Calls made before the
// preparing phase has finished are rejected.
func (c *InterviewController) End(ctx context.Context) error {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return ErrNoActiveInterview
	}
	if state, _, _, _ := s.snapshot(); state == domain.InterviewStatePreparing {
		return ErrInterviewPreparing
	}

	_, index, turn := s.bumpTurn()
	if playback := s.takePlayback(); playback != nil {
		_ = playback.Stop()
	}
	s.opMu.Lock()
	// A user turn whose recording never started still owes its empty segment.
	if s.record.Recording() || turn == domain.TurnUserSpeaking {
		s.record.Finish(index)
	}
	s.opMu.Unlock()
	return c.complete(s)
}

// Abandon discards the session entirely. No record is persisted.
func (c *InterviewController) Abandon() error {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()
	if s == nil {
		return ErrNoActiveInterview
	}

	s.cancel()
	if playback := s.takePlayback(); playback != nil {
		_ = playback.Stop()
	}
	if s.record != nil {
		s.opMu.Lock()
		s.record.Discard()
		s.opMu.Unlock()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	c.events.InterviewStateChanged(domain.InterviewStateSetup, domain.ReasonInterviewAbandoned)
	return nil
}

func (c *InterviewController) complete(s *activeInterview) error {
	s.mu.Lock()
	if s.state == domain.InterviewStateCompleted {
		s.mu.Unlock()
		return nil
	}
	s.state = domain.InterviewStateCompleted
	s.turn = domain.TurnProcessing
	started := s.startedAt
	s.mu.Unlock()

	s.cancel()
	s.cache.Close()

	segments := s.record.Segments()
	asked := len(segments)
	questions := s.set.Questions
	if asked < len(questions) {
		questions = questions[:asked]
	}

	session := domain.InterviewSession{
		ID:              s.id,
		Role:            s.cfg.Role,
		Company:         s.cfg.Company,
		StartedAt:       started,
		DurationSeconds: int(time.Since(started) / time.Second),
		QuestionCount:   asked,
		Type:            s.set.Type,
		Questions:       questions,
	}
	if err := c.store.Upsert(session); err != nil {
		c.log.Error("failed to persist completed session", zap.String("session", s.id), zap.Error(err))
		c.events.SessionError(domain.ErrorCodeStore, err.Error())
	}

	c.mu.Lock()
	if c.current == s {
		c.current = nil
	}
	c.finished = &finishedInterview{
		session:  session,
		segments: segments,
		combined: s.record.Combined(),
	}
	c.mu.Unlock()

	c.events.InterviewStateChanged(domain.InterviewStateCompleted, domain.ReasonInterviewCompleted)
	return nil
}

func (c *InterviewController) failInit(s *activeInterview, err error) {
	s.cancel()
	if s.cache != nil {
		s.cache.Close()
	}
	if s.record != nil {
		s.record.Discard()
	}

	c.mu.Lock()
	abandoned := c.current != s
	if !abandoned {
		c.current = nil
		c.lastInitErr = err.Error()
	}
	c.mu.Unlock()
	if abandoned {
		return
	}

	c.log.Warn("interview initialization failed", zap.Error(err))
	c.events.SessionError(domain.ErrorCodeInit, err.Error())
	c.events.InterviewStateChanged(domain.InterviewStateInitError, domain.ReasonInitFailed)
}

// Status returns the current backend status.
func (c *InterviewController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		state, turn, index, count := c.current.snapshot()
		return domain.Status{State: state, Turn: turn, QuestionIndex: index, QuestionCount: count}
	}
	if c.lastInitErr != "" {
		return domain.Status{State: domain.InterviewStateInitError, Message: c.lastInitErr}
	}
	if c.finished != nil {
		return domain.Status{State: domain.InterviewStateCompleted, QuestionCount: c.finished.session.QuestionCount}
	}
	return domain.Status{State: domain.InterviewStateSetup}
}

// Finished returns the most recently completed session and its ordered
// answer segments, if any.
func (c *InterviewController) Finished() (domain.InterviewSession, []domain.AnswerSegment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished == nil {
		return domain.InterviewSession{}, nil, false
	}
	segments := make([]domain.AnswerSegment, len(c.finished.segments))
	copy(segments, c.finished.segments)
	return c.finished.session, segments, true
}

// SegmentAudio returns the recorded answer for one question of the most
// recently completed session, for per-question review playback.
func (c *InterviewController) SegmentAudio(sessionID string, index int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished == nil || c.finished.session.ID != sessionID {
		return nil, ErrUnknownSession
	}
	if index < 0 || index >= len(c.finished.segments) {
		return nil, fmt.Errorf("question index %d out of range", index)
	}
	return c.finished.segments[index].Data, nil
}

// CombinedAudio returns the full-session answer track.
func (c *InterviewController) CombinedAudio(sessionID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished == nil || c.finished.session.ID != sessionID {
		return nil, ErrUnknownSession
	}
	return c.finished.combined, nil
}
