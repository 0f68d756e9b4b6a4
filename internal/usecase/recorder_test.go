package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"prepmic/internal/ports"
)

func TestRecorderCapturesSegmentsInOrder(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{data: []byte("chunk")}
	rec := NewRecorder(capture, testAudioConfig(), 256, nil)

	for i := 0; i < 3; i++ {
		if err := rec.Begin(context.Background(), i); err != nil {
			t.Fatalf("begin %d failed: %v", i, err)
		}
		waitRecording(t, rec, true)
		segment := rec.Finish(i)
		if segment.QuestionIndex != i {
			t.Fatalf("segment index = %d, want %d", segment.QuestionIndex, i)
		}
		if string(segment.Data) != "chunk" {
			t.Fatalf("segment %d data = %q", i, segment.Data)
		}
	}

	segments := rec.Segments()
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if string(rec.Combined()) != "chunkchunkchunk" {
		t.Fatalf("combined = %q", rec.Combined())
	}
}

func TestRecorderBeginIsNoOpWhileActive(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{data: []byte("chunk")}
	rec := NewRecorder(capture, testAudioConfig(), 256, nil)

	if err := rec.Begin(context.Background(), 0); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := rec.Begin(context.Background(), 1); err != nil {
		t.Fatalf("second begin failed: %v", err)
	}

	segment := rec.Finish(0)
	if segment.QuestionIndex != 0 {
		t.Fatalf("segment belongs to question %d, want 0", segment.QuestionIndex)
	}
	if len(rec.Segments()) != 1 {
		t.Fatalf("double begin must not create a second segment")
	}
}

func TestRecorderFinishWhileIdleStoresEmptySegment(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(&fakeCapture{}, testAudioConfig(), 256, nil)

	segment := rec.Finish(4)
	if segment.QuestionIndex != 4 || len(segment.Data) != 0 {
		t.Fatalf("idle finish = %+v, want empty segment for question 4", segment)
	}
	if len(rec.Segments()) != 1 {
		t.Fatalf("idle finish must still record the placeholder segment")
	}
}

func TestRecorderBeginReportsCaptureFailure(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{startErr: errors.New("device busy")}
	rec := NewRecorder(capture, testAudioConfig(), 256, nil)

	if err := rec.Begin(context.Background(), 0); err == nil {
		t.Fatalf("expected begin to surface the capture error")
	}
	if rec.Recording() {
		t.Fatalf("failed begin must not leave a capture active")
	}
}

func TestRecorderDiscardDropsActiveCapture(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{data: []byte("chunk")}
	rec := NewRecorder(capture, testAudioConfig(), 256, nil)

	if err := rec.Begin(context.Background(), 0); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	rec.Discard()

	if rec.Recording() {
		t.Fatalf("discard must stop the capture")
	}
	if len(rec.Segments()) != 0 {
		t.Fatalf("discard must not store a segment")
	}
}

func testAudioConfig() ports.AudioConfig {
	return ports.AudioConfig{SampleRate: 16000, Channels: 1}
}

func waitRecording(t *testing.T, rec *Recorder, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec.Recording() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("recorder never reached recording=%v", want)
}
