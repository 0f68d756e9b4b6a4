package ports

import (
	"context"
	"io"

	"prepmic/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// PlaybackConfig describes the PCM format handed to the player.
type PlaybackConfig struct {
	SampleRate int
	Channels   int
}

// Playback is one in-progress audio playback.
type Playback interface {
	// Done is closed-equivalent: it yields exactly one value when playback
	// finishes, nil on a full play-through.
	Done() <-chan error
	Stop() error
}

// AudioPlayer plays decoded PCM buffers through the output device.
type AudioPlayer interface {
	Play(ctx context.Context, pcm []byte, cfg PlaybackConfig) (Playback, error)
}

// QuestionRequest is the input to interview question generation.
type QuestionRequest struct {
	Role           string
	Company        string
	JobDescription string
	DurationMin    int
	Context        string
	CandidateName  string
	QuestionCount  int
}

// QuestionGenerator produces the ordered question list for a session.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, req QuestionRequest) (domain.QuestionSet, error)
}

// SpeechSynthesizer renders question text into playable PCM audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, voice domain.Voice) ([]byte, error)
}

// TranscriptionResult pairs the reconstructed transcript with audio metrics.
type TranscriptionResult struct {
	Transcript    []domain.TranscriptItem
	AudioAnalysis domain.AudioAnalysis
}

// Transcriber transcribes ordered question/answer pairs and scores
// the audio characteristics of the answers.
type Transcriber interface {
	Transcribe(ctx context.Context, questions []string, answers []domain.AnswerSegment) (TranscriptionResult, error)
}

// ContentAnalyzer scores answer content quality from a transcript.
type ContentAnalyzer interface {
	AnalyzeContent(ctx context.Context, transcript []domain.TranscriptItem) (domain.ContentAnalysis, error)
}

// SessionStore persists interview session records keyed by id.
type SessionStore interface {
	Get(id string) (domain.InterviewSession, error)
	Upsert(session domain.InterviewSession) error
	List() ([]domain.InterviewSession, error)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	InterviewStateChanged(state domain.InterviewState, reason domain.SessionStateReason)
	TurnChanged(turn domain.TurnState, questionIndex int)
	StageStatusChanged(stage domain.Stage, status domain.StageStatus)
	SessionError(code domain.ErrorCode, detail string)
}
