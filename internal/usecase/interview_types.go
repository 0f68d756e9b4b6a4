package usecase

import (
	"context"
	"sync"
	"time"

	"prepmic/internal/audiocache"
	"prepmic/internal/domain"
	"prepmic/internal/ports"
)

type activeInterview struct {
	id     string
	cfg    domain.InterviewConfig
	set    domain.QuestionSet
	cache  *audiocache.Cache
	record *Recorder

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     domain.InterviewState
	turn      domain.TurnState
	index     int
	turnSeq   int
	startedAt time.Time
	playback  ports.Playback

	// opMu serializes answer capture transitions so a superseded speaking
	// goroutine can never start a capture after the turn advanced.
	opMu sync.Mutex
}

func (s *activeInterview) snapshot() (domain.InterviewState, domain.TurnState, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.turn, s.index, len(s.set.Questions)
}

func (s *activeInterview) setQuestions(set domain.QuestionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = set
}

func (s *activeInterview) setTurn(seq int, turn domain.TurnState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turnSeq != seq || s.state != domain.InterviewStateInterviewing {
		return false
	}
	s.turn = turn
	return true
}

// bumpTurn invalidates any in-flight speaking goroutine and returns the new
// sequence along with the index and turn it interrupted.
func (s *activeInterview) bumpTurn() (seq int, index int, turn domain.TurnState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnSeq++
	return s.turnSeq, s.index, s.turn
}

// seqValid reports whether work tagged with seq may still act on the session.
func (s *activeInterview) seqValid(seq int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnSeq == seq && s.state == domain.InterviewStateInterviewing && s.ctx.Err() == nil
}

func (s *activeInterview) setPlayback(seq int, playback ports.Playback) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turnSeq != seq {
		return false
	}
	s.playback = playback
	return true
}

func (s *activeInterview) takePlayback() ports.Playback {
	s.mu.Lock()
	defer s.mu.Unlock()
	playback := s.playback
	s.playback = nil
	return playback
}

// finishedInterview keeps a completed session's audio available for analysis
// and per-question review playback.
type finishedInterview struct {
	session  domain.InterviewSession
	segments []domain.AnswerSegment
	combined []byte
}
