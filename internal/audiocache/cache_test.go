package audiocache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"prepmic/internal/domain"
)

func TestEnsureReturnsCachedBuffer(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{buf: []byte("pcm")}
	cache := New(synth, domain.VoiceFemale, 3, nil)
	defer cache.Close()

	first, err := cache.Ensure(context.Background(), 0, "question")
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	second, err := cache.Ensure(context.Background(), 0, "question")
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if string(first) != "pcm" || string(second) != "pcm" {
		t.Fatalf("unexpected buffers: %q %q", first, second)
	}
	if got := synth.calls.Load(); got != 1 {
		t.Fatalf("expected 1 synthesis call, got %d", got)
	}
}

func TestEnsureDeduplicatesConcurrentFetches(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{buf: []byte("pcm"), gate: make(chan struct{})}
	cache := New(synth, domain.VoiceFemale, 3, nil)
	defer cache.Close()

	const callers = 16
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Ensure(context.Background(), 5, "question five")
		}(i)
	}

	// Let every caller pile onto the same in-flight fetch before it resolves.
	time.Sleep(20 * time.Millisecond)
	close(synth.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if string(results[i]) != "pcm" {
			t.Fatalf("caller %d got unexpected buffer %q", i, results[i])
		}
	}
	if got := synth.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 synthesis call for concurrent ensures, got %d", got)
	}
}

func TestEnsureRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{buf: []byte("pcm"), failures: 1}
	cache := New(synth, domain.VoiceFemale, 3, nil)
	defer cache.Close()

	if _, err := cache.Ensure(context.Background(), 2, "question"); err == nil {
		t.Fatalf("expected first ensure to fail")
	}
	if cache.Cached(2) {
		t.Fatalf("failed fetch must not be cached")
	}

	buf, err := cache.Ensure(context.Background(), 2, "question")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if string(buf) != "pcm" {
		t.Fatalf("unexpected buffer: %q", buf)
	}
	if got := synth.calls.Load(); got != 2 {
		t.Fatalf("expected 2 synthesis calls, got %d", got)
	}
}

func TestPrefetchWindowSchedulesLookahead(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{buf: []byte("pcm")}
	cache := New(synth, domain.VoiceFemale, 3, nil)
	defer cache.Close()

	questions := []string{"q0", "q1", "q2", "q3", "q4", "q5"}
	cache.PrefetchWindow(0, questions)

	waitFor(t, func() bool {
		return cache.Cached(1) && cache.Cached(2) && cache.Cached(3)
	})
	if cache.Cached(0) || cache.Cached(4) {
		t.Fatalf("prefetch window fetched indices outside 1..3")
	}
}

func TestPrefetchWindowStopsAtQuestionCount(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{buf: []byte("pcm")}
	cache := New(synth, domain.VoiceFemale, 3, nil)
	defer cache.Close()

	cache.PrefetchWindow(1, []string{"q0", "q1", "q2"})

	waitFor(t, func() bool { return cache.Cached(2) })
	if got := synth.calls.Load(); got != 1 {
		t.Fatalf("expected 1 prefetch at end of list, got %d", got)
	}
}

func TestEnsureHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{buf: []byte("pcm"), gate: make(chan struct{})}
	cache := New(synth, domain.VoiceFemale, 3, nil)
	defer cache.Close()
	defer close(synth.gate)

	go func() {
		_, _ = cache.Ensure(context.Background(), 0, "question")
	}()
	waitFor(t, func() bool { return synth.calls.Load() == 1 })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cache.Ensure(ctx, 0, "question"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

type fakeSynth struct {
	buf      []byte
	gate     chan struct{}
	failures int32
	calls    atomic.Int32
}

func (f *fakeSynth) Synthesize(ctx context.Context, _ string, _ domain.Voice) ([]byte, error) {
	n := f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= f.failures {
		return nil, errors.New("synthesis unavailable")
	}
	return f.buf, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
