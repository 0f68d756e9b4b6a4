package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"prepmic/internal/domain"
	"prepmic/internal/ports"
)

func TestPipelineRunsBothStages(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	seedSession(t, store, "s1", []string{"q0", "q1"})
	transcriber := &fakeTranscriber{result: ports.TranscriptionResult{
		Transcript: []domain.TranscriptItem{
			{Speaker: domain.SpeakerAI, Text: "q0"},
			{Speaker: domain.SpeakerUser, Text: "an answer"},
		},
		AudioAnalysis: domain.AudioAnalysis{ConfidenceScore: 80, ClarityScore: 75, Pace: "steady"},
	}}
	analyzer := &fakeAnalyzer{result: domain.ContentAnalysis{OverallScore: 72}}
	pipeline := NewAnalysisPipeline(transcriber, analyzer, store, newRecordingSink(), nil)

	segments := []domain.AnswerSegment{{QuestionIndex: 0, Data: []byte("a")}, {QuestionIndex: 1}}
	if err := pipeline.Run(context.Background(), "s1", segments); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	got, err := store.Get("s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Transcript) != 2 || got.AudioAnalysis == nil || got.AudioAnalysis.ConfidenceScore != 80 {
		t.Fatalf("transcription results missing: %+v", got)
	}
	if got.ContentAnalysis == nil || got.ContentAnalysis.OverallScore != 72 {
		t.Fatalf("content results missing: %+v", got.ContentAnalysis)
	}

	statuses := pipeline.Statuses("s1")
	if statuses.Transcription != domain.StageStatusSuccess || statuses.Content != domain.StageStatusSuccess {
		t.Fatalf("statuses = %+v", statuses)
	}
	if transcriber.calls() != 1 || analyzer.calls() != 1 {
		t.Fatalf("stage calls = %d/%d, want 1/1", transcriber.calls(), analyzer.calls())
	}
}

func TestPipelineRerunSkipsCompletedStages(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	seedSession(t, store, "s1", []string{"q0"})
	transcriber := &fakeTranscriber{result: ports.TranscriptionResult{
		Transcript: []domain.TranscriptItem{{Speaker: domain.SpeakerAI, Text: "q0"}},
	}}
	analyzer := &fakeAnalyzer{result: domain.ContentAnalysis{OverallScore: 60}}
	pipeline := NewAnalysisPipeline(transcriber, analyzer, store, newRecordingSink(), nil)

	if err := pipeline.Run(context.Background(), "s1", nil); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := pipeline.Run(context.Background(), "s1", nil); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if transcriber.calls() != 1 || analyzer.calls() != 1 {
		t.Fatalf("re-run repeated stages: transcribe=%d analyze=%d", transcriber.calls(), analyzer.calls())
	}
	statuses := pipeline.Statuses("s1")
	if statuses.Transcription != domain.StageStatusSuccess || statuses.Content != domain.StageStatusSuccess {
		t.Fatalf("statuses after re-run = %+v", statuses)
	}
}

func TestPipelineContentFailureKeepsTranscript(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	seedSession(t, store, "s1", []string{"q0"})
	transcriber := &fakeTranscriber{result: ports.TranscriptionResult{
		Transcript: []domain.TranscriptItem{{Speaker: domain.SpeakerUser, Text: "answer"}},
	}}
	analyzer := &fakeAnalyzer{err: errors.New("model overloaded")}
	sink := newRecordingSink()
	pipeline := NewAnalysisPipeline(transcriber, analyzer, store, sink, nil)

	err := pipeline.Run(context.Background(), "s1", nil)
	if err == nil || !strings.Contains(err.Error(), "content analysis stage") {
		t.Fatalf("unexpected run error: %v", err)
	}

	got, _ := store.Get("s1")
	if got.Transcript == nil {
		t.Fatalf("stage one results must survive a stage two failure")
	}
	if got.ContentAnalysis != nil {
		t.Fatalf("failed stage must not persist results")
	}

	statuses := pipeline.Statuses("s1")
	if statuses.Transcription != domain.StageStatusSuccess || statuses.Content != domain.StageStatusError {
		t.Fatalf("statuses = %+v", statuses)
	}
	if code, _ := sink.lastError(); code != domain.ErrorCodeContent {
		t.Fatalf("expected content_analysis error event, got %q", code)
	}

	// Retrying only the failed stage leaves the stored transcript untouched.
	analyzer.setErr(nil)
	analyzer.result = domain.ContentAnalysis{OverallScore: 55}
	if err := pipeline.RetryStage(context.Background(), "s1", domain.StageContent, nil); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if transcriber.calls() != 1 {
		t.Fatalf("retrying stage two must not re-run stage one")
	}
	got, _ = store.Get("s1")
	if got.ContentAnalysis == nil || got.ContentAnalysis.OverallScore != 55 {
		t.Fatalf("retry did not persist content results: %+v", got.ContentAnalysis)
	}
}

func TestPipelineContentRequiresTranscript(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	seedSession(t, store, "s1", []string{"q0"})
	pipeline := NewAnalysisPipeline(&fakeTranscriber{}, &fakeAnalyzer{}, store, newRecordingSink(), nil)

	err := pipeline.RetryStage(context.Background(), "s1", domain.StageContent, nil)
	if !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
}

func TestPipelineFallsBackToPlaceholderQuestions(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	if err := store.Upsert(domain.InterviewSession{ID: "legacy", QuestionCount: 2}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	transcriber := &fakeTranscriber{result: ports.TranscriptionResult{
		Transcript: []domain.TranscriptItem{{Speaker: domain.SpeakerAI, Text: "?"}},
	}}
	analyzer := &fakeAnalyzer{}
	pipeline := NewAnalysisPipeline(transcriber, analyzer, store, newRecordingSink(), nil)

	if err := pipeline.Run(context.Background(), "legacy", nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := []string{"Unknown Question", "Unknown Question"}
	got := transcriber.lastQuestions()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("questions passed to transcriber = %v, want %v", got, want)
	}
}

func TestPipelineStatusesDefaultToPending(t *testing.T) {
	t.Parallel()

	pipeline := NewAnalysisPipeline(&fakeTranscriber{}, &fakeAnalyzer{}, &memStore{}, newRecordingSink(), nil)
	statuses := pipeline.Statuses("never-seen")
	if statuses.Transcription != domain.StageStatusPending || statuses.Content != domain.StageStatusPending {
		t.Fatalf("statuses = %+v", statuses)
	}
}

func seedSession(t *testing.T, store *memStore, id string, questions []string) {
	t.Helper()
	err := store.Upsert(domain.InterviewSession{
		ID:            id,
		Role:          "Backend Engineer",
		QuestionCount: len(questions),
		Questions:     questions,
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

type fakeTranscriber struct {
	mu        sync.Mutex
	result    ports.TranscriptionResult
	err       error
	count     int
	questions []string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, questions []string, _ []domain.AnswerSegment) (ports.TranscriptionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	f.questions = questions
	return f.result, f.err
}

func (f *fakeTranscriber) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *fakeTranscriber) lastQuestions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.questions
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	result domain.ContentAnalysis
	err    error
	count  int
}

func (f *fakeAnalyzer) AnalyzeContent(ctx context.Context, _ []domain.TranscriptItem) (domain.ContentAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return f.result, f.err
}

func (f *fakeAnalyzer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *fakeAnalyzer) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}
