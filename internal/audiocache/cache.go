package audiocache

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"prepmic/internal/domain"
	"prepmic/internal/ports"
)

// DefaultLookahead is how many upcoming questions are prefetched in the
// background while the current one plays.
const DefaultLookahead = 3

var errClosed = errors.New("audio cache is closed")

// Cache fetches and decodes synthesized speech per question index.
// Entries are created at most once per index and never evicted; a session's
// question count bounds the cache size.
type Cache struct {
	synth     ports.SpeechSynthesizer
	voice     domain.Voice
	lookahead int
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	buffers  map[int][]byte
	inflight map[int]*fetch
}

type fetch struct {
	done chan struct{}
	buf  []byte
	err  error
}

func New(synth ports.SpeechSynthesizer, voice domain.Voice, lookahead int, log *zap.Logger) *Cache {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		synth:     synth,
		voice:     voice,
		lookahead: lookahead,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		buffers:   map[int][]byte{},
		inflight:  map[int]*fetch{},
	}
}

// Ensure returns the decoded audio buffer for the given question index,
// fetching it if necessary. Concurrent callers for the same index join a
// single underlying synthesis call. A failed fetch is not cached, so the
// next Ensure retries.
func (c *Cache) Ensure(ctx context.Context, index int, text string) ([]byte, error) {
	c.mu.Lock()
	if buf, ok := c.buffers[index]; ok {
		c.mu.Unlock()
		return buf, nil
	}
	if f, ok := c.inflight[index]; ok {
		c.mu.Unlock()
		return c.await(ctx, f)
	}

	f := &fetch{done: make(chan struct{})}
	c.inflight[index] = f
	c.mu.Unlock()

	f.buf, f.err = c.synth.Synthesize(ctx, text, c.voice)

	c.mu.Lock()
	delete(c.inflight, index)
	if f.err == nil {
		c.buffers[index] = f.buf
	}
	c.mu.Unlock()
	close(f.done)

	return f.buf, f.err
}

// Prefetch schedules a background fetch for an index. Failures are logged
// and otherwise forgotten; the buffer is fetched again lazily when needed.
func (c *Cache) Prefetch(index int, text string) {
	go func() {
		if _, err := c.Ensure(c.ctx, index, text); err != nil {
			c.log.Warn("audio prefetch failed",
				zap.Int("question", index),
				zap.Error(err),
			)
		}
	}()
}

// PrefetchWindow schedules background fetches for the questions following
// current, up to the configured lookahead.
func (c *Cache) PrefetchWindow(current int, questions []string) {
	for i := 1; i <= c.lookahead; i++ {
		next := current + i
		if next >= len(questions) {
			break
		}
		c.Prefetch(next, questions[next])
	}
}

// Cached reports whether a buffer already exists for the index.
func (c *Cache) Cached(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.buffers[index]
	return ok
}

// Close cancels outstanding background prefetches. Their results are
// discarded when they resolve.
func (c *Cache) Close() {
	c.cancel()
}

func (c *Cache) await(ctx context.Context, f *fetch) ([]byte, error) {
	select {
	case <-f.done:
		return f.buf, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, errClosed
	}
}
