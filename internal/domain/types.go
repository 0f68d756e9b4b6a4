package domain

import "time"

// InterviewState models the overall session lifecycle.
type InterviewState string

const (
	InterviewStateSetup        InterviewState = "setup"
	InterviewStatePreparing    InterviewState = "preparing"
	InterviewStateInterviewing InterviewState = "interviewing"
	InterviewStateCompleted    InterviewState = "completed"
	InterviewStateInitError    InterviewState = "initialization_error"
)

// TurnState identifies who holds the floor inside an interviewing session.
type TurnState string

const (
	TurnAISpeaking   TurnState = "ai_speaking"
	TurnUserSpeaking TurnState = "user_speaking"
	TurnProcessing   TurnState = "processing"
)

// InterviewType is inferred by the question generator from the requested setup.
type InterviewType string

const (
	InterviewTypeBehavioral InterviewType = "Behavioral"
	InterviewTypeTechnical  InterviewType = "Technical"
	InterviewTypeMixed      InterviewType = "Mixed"
)

// Voice selects the interviewer's synthesized voice.
type Voice string

const (
	VoiceMale   Voice = "Male"
	VoiceFemale Voice = "Female"
)

// InterviewConfig is the validated setup input. Immutable once a session starts.
type InterviewConfig struct {
	Role           string        `json:"role"`
	Company        string        `json:"company,omitempty"`
	JobDescription string        `json:"jobDescription,omitempty"`
	Duration       time.Duration `json:"duration"`
	Context        string        `json:"context,omitempty"`
	Voice          Voice         `json:"voice"`
	CandidateName  string        `json:"candidateName,omitempty"`
}

// QuestionSet is the ordered question list produced once per session.
type QuestionSet struct {
	Questions []string      `json:"questions"`
	Type      InterviewType `json:"type"`
}

// AnswerSegment holds the raw recorded audio for exactly one question.
// Empty data means recording was unavailable for that turn.
type AnswerSegment struct {
	QuestionIndex int    `json:"questionIndex"`
	Data          []byte `json:"data,omitempty"`
}

// Speaker identifies a transcript turn's source.
type Speaker string

const (
	SpeakerAI   Speaker = "AI"
	SpeakerUser Speaker = "User"
)

// TranscriptItem is one reconstructed conversation turn.
type TranscriptItem struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// AudioAnalysis scores audio characteristics of the candidate's answers.
type AudioAnalysis struct {
	ConfidenceScore int    `json:"confidenceScore"`
	ClarityScore    int    `json:"clarityScore"`
	Pace            string `json:"pace"`
	Tone            string `json:"tone"`
	Feedback        string `json:"feedback"`
}

// QuestionFeedback is the content evaluation of a single question/answer pair.
type QuestionFeedback struct {
	Question       string `json:"question"`
	UserAnswer     string `json:"userAnswer"`
	Score          int    `json:"score"`
	Feedback       string `json:"feedback"`
	ImprovedAnswer string `json:"improvedAnswer"`
}

// ContentAnalysis is the stage-two evaluation over the full transcript.
type ContentAnalysis struct {
	OverallScore     int                `json:"overallScore"`
	Strengths        []string           `json:"strengths"`
	Improvements     []string           `json:"improvements"`
	QuestionFeedback []QuestionFeedback `json:"questionFeedback"`
}

// InterviewSession is the persisted record of one interview attempt.
// Transcript and AudioAnalysis are attached together by analysis stage one;
// ContentAnalysis by stage two. Fields stay nil until their stage succeeds.
type InterviewSession struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"`
	Company         string           `json:"company,omitempty"`
	StartedAt       time.Time        `json:"startedAt"`
	DurationSeconds int              `json:"durationSeconds"`
	QuestionCount   int              `json:"questionCount"`
	Type            InterviewType    `json:"type"`
	Questions       []string         `json:"questions,omitempty"`
	Transcript      []TranscriptItem `json:"transcript,omitempty"`
	AudioAnalysis   *AudioAnalysis   `json:"audioAnalysis,omitempty"`
	ContentAnalysis *ContentAnalysis `json:"contentAnalysis,omitempty"`
}

// Stage identifies one phase of post-session analysis.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageContent       Stage = "content"
)

// StageStatus tracks the progress of a single analysis stage.
type StageStatus string

const (
	StageStatusPending StageStatus = "pending"
	StageStatusLoading StageStatus = "loading"
	StageStatusSuccess StageStatus = "success"
	StageStatusError   StageStatus = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	ReasonIdle                    SessionStateReason = "idle"
	ReasonPreparing               SessionStateReason = "preparing"
	ReasonQuestionsReady          SessionStateReason = "questions_ready"
	ReasonInterviewStarted        SessionStateReason = "interview_started"
	ReasonQuestionPlaying         SessionStateReason = "question_playing"
	ReasonQuestionPlaybackSkipped SessionStateReason = "question_playback_skipped"
	ReasonAwaitingAnswer          SessionStateReason = "awaiting_answer"
	ReasonAnswerCaptured          SessionStateReason = "answer_captured"
	ReasonInterviewCompleted      SessionStateReason = "interview_completed"
	ReasonInterviewAbandoned      SessionStateReason = "interview_abandoned"
	ReasonInitFailed              SessionStateReason = "initialization_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeSetup         ErrorCode = "setup"
	ErrorCodeInit          ErrorCode = "initialization"
	ErrorCodeSynthesis     ErrorCode = "synthesis"
	ErrorCodePlayback      ErrorCode = "playback"
	ErrorCodeRecording     ErrorCode = "recording"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeContent       ErrorCode = "content_analysis"
	ErrorCodeStore         ErrorCode = "store"
)

// Status summarizes the current runtime status for the UI.
type Status struct {
	State         InterviewState `json:"state"`
	Turn          TurnState      `json:"turn,omitempty"`
	QuestionIndex int            `json:"questionIndex"`
	QuestionCount int            `json:"questionCount"`
	Message       string         `json:"message,omitempty"`
}
