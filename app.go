package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"prepmic/internal/bootstrap"
	"prepmic/internal/config"
	"prepmic/internal/domain"
	"prepmic/internal/ports"
	"prepmic/internal/usecase"
)

const (
	eventState = "prepmic:state"
	eventTurn  = "prepmic:turn"
	eventStage = "prepmic:stage"
	eventError = "prepmic:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context
	log *zap.Logger

	controller *usecase.InterviewController
	pipeline   *usecase.AnalysisPipeline
	store      ports.SessionStore
	cfg        config.Config
	bootErr    error
}

func NewApp(log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{log: log}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, a.log)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.pipeline = services.Pipeline
	a.store = services.Store
	a.InterviewStateChanged(domain.InterviewStateSetup, domain.ReasonIdle)
}

// StartInterview validates the setup input and runs the session from
// preparation through the first question.
func (a *App) StartInterview(cfg domain.InterviewConfig) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx, cfg); err != nil {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// FinishAnswer ends the candidate's current answer and advances the turn.
func (a *App) FinishAnswer() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.FinishAnswer(a.ctx); err != nil {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// EndInterview completes the session early, keeping what was recorded.
func (a *App) EndInterview() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.End(a.ctx); err != nil {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// AbandonInterview discards the running session without persisting a record.
func (a *App) AbandonInterview() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Abandon(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveInterview) {
			return nil
		}
		return err
	}
	return nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.InterviewStateSetup, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.InterviewStateSetup}
	}
	return a.controller.Status()
}

// AnalyzeSession runs the staged analysis over a completed session. Stages
// whose results are already persisted are skipped.
func (a *App) AnalyzeSession(sessionID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	segments := a.segmentsFor(sessionID)
	return a.pipeline.Run(a.ctx, sessionID, segments)
}

// RetryAnalysisStage re-invokes exactly one failed analysis stage.
func (a *App) RetryAnalysisStage(sessionID string, stage string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	var s domain.Stage
	switch stage {
	case string(domain.StageTranscription):
		s = domain.StageTranscription
	case string(domain.StageContent):
		s = domain.StageContent
	default:
		return fmt.Errorf("unknown analysis stage %q", stage)
	}
	return a.pipeline.RetryStage(a.ctx, sessionID, s, a.segmentsFor(sessionID))
}

// GetAnalysisStatus returns per-stage analysis progress for a session.
func (a *App) GetAnalysisStatus(sessionID string) usecase.StageStatuses {
	if a.pipeline == nil {
		return usecase.StageStatuses{
			Transcription: domain.StageStatusPending,
			Content:       domain.StageStatusPending,
		}
	}
	return a.pipeline.Statuses(sessionID)
}

// ListSessions returns all persisted session records, newest first.
func (a *App) ListSessions() ([]domain.InterviewSession, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.store.List()
}

// GetSession returns one persisted session record.
func (a *App) GetSession(sessionID string) (domain.InterviewSession, error) {
	if err := a.requireReady(); err != nil {
		return domain.InterviewSession{}, err
	}
	return a.store.Get(sessionID)
}

// GetAnswerAudio returns the recorded answer for one question of the most
// recently completed session, for review playback.
func (a *App) GetAnswerAudio(sessionID string, questionIndex int) ([]byte, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.controller.SegmentAudio(sessionID, questionIndex)
}

// GetSessionAudio returns the full-session answer track.
func (a *App) GetSessionAudio(sessionID string) ([]byte, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.controller.CombinedAudio(sessionID)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"provider":        "Gemini",
		"questionModel":   a.cfg.Gemini.QuestionModel,
		"ttsModel":        a.cfg.Gemini.TTSModel,
		"transcribeModel": a.cfg.Gemini.TranscribeModel,
		"analysisModel":   a.cfg.Gemini.AnalysisModel,
		"audioInput":      a.cfg.Audio.InputDevice,
		"audioFormat":     a.cfg.Audio.InputFormat,
		"dataDir":         a.cfg.DataDir,
	}
}

func (a *App) segmentsFor(sessionID string) []domain.AnswerSegment {
	session, segments, ok := a.controller.Finished()
	if ok && session.ID == sessionID {
		return segments
	}
	return nil
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// InterviewStateChanged emits session lifecycle updates to the frontend.
func (a *App) InterviewStateChanged(state domain.InterviewState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventState, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": stateReasonMessage(reason),
	})
}

// TurnChanged emits turn transitions inside an interviewing session.
func (a *App) TurnChanged(turn domain.TurnState, questionIndex int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTurn, map[string]any{
		"turn":          string(turn),
		"questionIndex": questionIndex,
	})
}

// StageStatusChanged emits analysis stage progress.
func (a *App) StageStatusChanged(stage domain.Stage, status domain.StageStatus) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventStage, map[string]string{
		"stage":  string(stage),
		"status": string(status),
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func stateReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.ReasonIdle:
		return "Ready"
	case domain.ReasonPreparing:
		return "Preparing interview..."
	case domain.ReasonQuestionsReady:
		return "Questions ready. Generating audio..."
	case domain.ReasonInterviewStarted:
		return "Interview started"
	case domain.ReasonQuestionPlaying:
		return "Interviewer is speaking"
	case domain.ReasonQuestionPlaybackSkipped:
		return "Question audio unavailable; continuing without playback"
	case domain.ReasonAwaitingAnswer:
		return "Your turn to answer"
	case domain.ReasonAnswerCaptured:
		return "Answer captured"
	case domain.ReasonInterviewCompleted:
		return "Interview completed"
	case domain.ReasonInterviewAbandoned:
		return "Interview discarded"
	case domain.ReasonInitFailed:
		return "Could not start the interview"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeSetup:
		return "Invalid interview setup"
	case domain.ErrorCodeInit:
		return "Interview initialization failed"
	case domain.ErrorCodeSynthesis:
		return "Question audio could not be generated"
	case domain.ErrorCodePlayback:
		return "Audio playback issue"
	case domain.ErrorCodeRecording:
		return "Recording issue"
	case domain.ErrorCodeTranscription:
		return "Transcription failed"
	case domain.ErrorCodeContent:
		return "Content analysis failed"
	case domain.ErrorCodeStore:
		return "Could not save the session"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
