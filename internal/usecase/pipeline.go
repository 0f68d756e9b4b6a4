package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"prepmic/internal/domain"
	"prepmic/internal/ports"
)

var ErrNoTranscript = errors.New("content analysis requires a transcript")

// StageStatuses is the per-stage progress of one session's analysis.
type StageStatuses struct {
	Transcription domain.StageStatus `json:"transcription"`
	Content       domain.StageStatus `json:"content"`
}

// AnalysisPipeline runs the staged post-session analysis: transcription plus
// audio metrics first, content scoring second. The pipeline may be entered
// any number of times; it reads the persisted record and only runs stages
// whose results are still missing. A failed stage never touches data written
// by a stage that already succeeded.
type AnalysisPipeline struct {
	transcriber ports.Transcriber
	analyzer    ports.ContentAnalyzer
	store       ports.SessionStore
	events      ports.EventSink
	log         *zap.Logger

	mu     sync.Mutex
	status map[string]*StageStatuses
}

func NewAnalysisPipeline(
	transcriber ports.Transcriber,
	analyzer ports.ContentAnalyzer,
	store ports.SessionStore,
	events ports.EventSink,
	log *zap.Logger,
) *AnalysisPipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalysisPipeline{
		transcriber: transcriber,
		analyzer:    analyzer,
		store:       store,
		events:      events,
		log:         log,
		status:      map[string]*StageStatuses{},
	}
}

// Run analyzes a completed session. Stages whose results already exist on
// the stored record are skipped, which makes re-entry after a restart or a
// partial prior run cheap and idempotent.
func (p *AnalysisPipeline) Run(ctx context.Context, sessionID string, segments []domain.AnswerSegment) error {
	session, err := p.store.Get(sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	if session.Transcript == nil {
		session, err = p.runTranscription(ctx, session, segments)
		if err != nil {
			return err
		}
	} else {
		p.setStatus(sessionID, domain.StageTranscription, domain.StageStatusSuccess)
	}

	if session.ContentAnalysis == nil {
		if _, err := p.runContent(ctx, session); err != nil {
			return err
		}
	} else {
		p.setStatus(sessionID, domain.StageContent, domain.StageStatusSuccess)
	}
	return nil
}

// RetryStage re-invokes exactly one failed stage. Results persisted by other
// stages are left untouched.
func (p *AnalysisPipeline) RetryStage(ctx context.Context, sessionID string, stage domain.Stage, segments []domain.AnswerSegment) error {
	session, err := p.store.Get(sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	switch stage {
	case domain.StageTranscription:
		_, err = p.runTranscription(ctx, session, segments)
	case domain.StageContent:
		_, err = p.runContent(ctx, session)
	default:
		err = fmt.Errorf("unknown analysis stage %q", stage)
	}
	return err
}

// Statuses returns the current stage progress for a session.
func (p *AnalysisPipeline) Statuses(sessionID string) StageStatuses {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.status[sessionID]; ok {
		return *s
	}
	return StageStatuses{Transcription: domain.StageStatusPending, Content: domain.StageStatusPending}
}

func (p *AnalysisPipeline) runTranscription(ctx context.Context, session domain.InterviewSession, segments []domain.AnswerSegment) (domain.InterviewSession, error) {
	p.setStatus(session.ID, domain.StageTranscription, domain.StageStatusLoading)

	questions := session.Questions
	if len(questions) == 0 {
		// Older records may predate question persistence.
		questions = make([]string, session.QuestionCount)
		for i := range questions {
			questions[i] = "Unknown Question"
		}
	}

	result, err := p.transcriber.Transcribe(ctx, questions, segments)
	if err != nil {
		p.setStatus(session.ID, domain.StageTranscription, domain.StageStatusError)
		p.events.SessionError(domain.ErrorCodeTranscription, err.Error())
		return session, fmt.Errorf("transcription stage: %w", err)
	}

	// Transcript and audio metrics land on the record together.
	session.Transcript = result.Transcript
	session.AudioAnalysis = &result.AudioAnalysis
	if err := p.store.Upsert(session); err != nil {
		p.setStatus(session.ID, domain.StageTranscription, domain.StageStatusError)
		p.events.SessionError(domain.ErrorCodeStore, err.Error())
		return session, fmt.Errorf("persist transcription result: %w", err)
	}

	p.setStatus(session.ID, domain.StageTranscription, domain.StageStatusSuccess)
	return session, nil
}

func (p *AnalysisPipeline) runContent(ctx context.Context, session domain.InterviewSession) (domain.InterviewSession, error) {
	if session.Transcript == nil {
		return session, ErrNoTranscript
	}
	p.setStatus(session.ID, domain.StageContent, domain.StageStatusLoading)

	result, err := p.analyzer.AnalyzeContent(ctx, session.Transcript)
	if err != nil {
		p.setStatus(session.ID, domain.StageContent, domain.StageStatusError)
		p.events.SessionError(domain.ErrorCodeContent, err.Error())
		return session, fmt.Errorf("content analysis stage: %w", err)
	}

	session.ContentAnalysis = &result
	if err := p.store.Upsert(session); err != nil {
		p.setStatus(session.ID, domain.StageContent, domain.StageStatusError)
		p.events.SessionError(domain.ErrorCodeStore, err.Error())
		return session, fmt.Errorf("persist content analysis result: %w", err)
	}

	p.setStatus(session.ID, domain.StageContent, domain.StageStatusSuccess)
	return session, nil
}

func (p *AnalysisPipeline) setStatus(sessionID string, stage domain.Stage, status domain.StageStatus) {
	p.mu.Lock()
	s, ok := p.status[sessionID]
	if !ok {
		s = &StageStatuses{Transcription: domain.StageStatusPending, Content: domain.StageStatusPending}
		p.status[sessionID] = s
	}
	switch stage {
	case domain.StageTranscription:
		s.Transcription = status
	case domain.StageContent:
		s.Content = status
	}
	p.mu.Unlock()

	p.events.StageStatusChanged(stage, status)
	p.log.Debug("analysis stage status",
		zap.String("session", sessionID),
		zap.String("stage", string(stage)),
		zap.String("status", string(status)),
	)
}
