package ocr

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spherical/cropcare/internal/cache"
	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	calls atomic.Int32
	reply string
	err   error
	gate  chan struct{}
	last  domain.GenerateRequest
	mu    sync.Mutex
}

func (f *fakeGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func newRecognizer(gen domain.ResponseGenerator, ttl time.Duration) *VisionRecognizer {
	return NewVisionRecognizer(gen, cache.NewMemoryClient(0, time.Minute), WithTTL(ttl), WithLogger(observability.Nop()))
}

func TestRecognizeText_TrimsAndSendsInstruction(t *testing.T) {
	gen := &fakeGenerator{reply: "  Urea 46% N \n"}
	r := newRecognizer(gen, time.Hour)

	text, err := r.RecognizeText(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "Urea 46% N", text)
	assert.Equal(t, Instruction, gen.last.Instruction)
	assert.Equal(t, []byte("img"), gen.last.Image)
}

func TestRecognizeText_CachesIdenticalBytes(t *testing.T) {
	gen := &fakeGenerator{reply: "label"}
	r := newRecognizer(gen, time.Hour)
	ctx := context.Background()

	first, err := r.RecognizeText(ctx, []byte{1, 2, 3})
	require.NoError(t, err)
	second, err := r.RecognizeText(ctx, []byte{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), gen.calls.Load())

	_, err = r.RecognizeText(ctx, []byte{1, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestRecognizeText_ExpiresAfterTTL(t *testing.T) {
	gen := &fakeGenerator{reply: "label"}
	r := newRecognizer(gen, 20*time.Millisecond)
	ctx := context.Background()

	_, err := r.RecognizeText(ctx, []byte("x"))
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = r.RecognizeText(ctx, []byte("x"))
	require.NoError(t, err)

	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestRecognizeText_FailuresAreNotCached(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	r := newRecognizer(gen, time.Hour)
	ctx := context.Background()

	text, err := r.RecognizeText(ctx, []byte("x"))
	require.Error(t, err)
	assert.Empty(t, text)
	assert.True(t, domain.IsType(err, domain.ErrorTypeOCR))

	gen.err = nil
	gen.reply = "ok"
	text, err = r.RecognizeText(ctx, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestRecognizeText_CollapsesConcurrentRequests(t *testing.T) {
	gen := &fakeGenerator{reply: "same", gate: make(chan struct{})}
	r := newRecognizer(gen, time.Hour)

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.RecognizeText(context.Background(), []byte("page"))
		}(i)
	}

	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the other goroutines time to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(gen.gate)
	wg.Wait()

	assert.Equal(t, int32(1), gen.calls.Load())
	for _, res := range results {
		assert.Equal(t, "same", res)
	}
}

func TestRecognizeText_CancelledCallerDoesNotFailOthers(t *testing.T) {
	gen := &fakeGenerator{reply: "Neem oil 5ml/L", gate: make(chan struct{})}
	r := newRecognizer(gen, time.Hour)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := r.RecognizeText(leaderCtx, []byte("leaf"))
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		text string
		err  error
	}
	follower := make(chan result, 1)
	go func() {
		text, err := r.RecognizeText(context.Background(), []byte("leaf"))
		follower <- result{text, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	err := <-leaderErr
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	close(gen.gate)
	res := <-follower
	require.NoError(t, res.err)
	assert.Equal(t, "Neem oil 5ml/L", res.text)
	assert.Equal(t, int32(1), gen.calls.Load())

	// The detached call still fills the cache.
	text, err := r.RecognizeText(context.Background(), []byte("leaf"))
	require.NoError(t, err)
	assert.Equal(t, "Neem oil 5ml/L", text)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestRecognizeText_FlightTimeout(t *testing.T) {
	gen := &fakeGenerator{reply: "never", gate: make(chan struct{})}
	defer close(gen.gate)
	r := NewVisionRecognizer(gen, nil, WithFlightTimeout(20*time.Millisecond), WithLogger(observability.Nop()))

	_, err := r.RecognizeText(context.Background(), []byte("leaf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecognizeText_EmptyImage(t *testing.T) {
	gen := &fakeGenerator{}
	r := newRecognizer(gen, time.Hour)
	_, err := r.RecognizeText(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, int32(0), gen.calls.Load())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey([]byte("a")), CacheKey([]byte("a")))
	assert.NotEqual(t, CacheKey([]byte("a")), CacheKey([]byte("b")))
	assert.Regexp(t, `^ocr:[0-9a-f]{64}$`, CacheKey([]byte("a")))
}
