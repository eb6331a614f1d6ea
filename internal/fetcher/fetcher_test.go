package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkyouma/myanimelist-scraper/internal/resilience"
)

type scriptedResponse struct {
	body string
	err  error
}

// scriptedTransport replays responses in order and records each call.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []scriptedResponse
	calls     []string
	timeouts  []time.Duration
}

func (s *scriptedTransport) Get(_ context.Context, url string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, url)
	s.timeouts = append(s.timeouts, timeout)
	if len(s.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r.body, r.err
}

func noSleepPolicy(waits *[]time.Duration) resilience.Policy {
	p := resilience.DefaultPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return p
}

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{responses: []scriptedResponse{{body: "<html>page</html>"}}}
	var waits []time.Duration
	f := NewRetryingFetcher(tr, noSleepPolicy(&waits))

	body, err := f.Fetch(context.Background(), "https://myanimelist.net/topanime.php?limit=0")
	require.NoError(t, err)
	assert.Equal(t, "<html>page</html>", body)
	assert.Len(t, tr.calls, 1)
	assert.Equal(t, []time.Duration{5 * time.Second}, tr.timeouts)
	assert.Equal(t, []time.Duration{time.Second}, waits)
}

func TestFetch_RetriesEmptyBodyThenSucceeds(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{responses: []scriptedResponse{
		{body: "  \n"},
		{err: resilience.NewTransientError(errors.New("status 503"), 503)},
		{body: "<html>ok</html>"},
	}}
	var waits []time.Duration
	f := NewRetryingFetcher(tr, noSleepPolicy(&waits))

	body, err := f.Fetch(context.Background(), "https://myanimelist.net/anime/5114/x/stats")
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
	assert.Len(t, tr.calls, 3)
	assert.Equal(t, []time.Duration{
		time.Second, time.Second, // delay, backoff after attempt 1
		time.Second, 2 * time.Second, // delay, backoff after attempt 2
		time.Second,
	}, waits)
}

func TestFetch_ExhaustedReturnsFetchFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	tr := &scriptedTransport{responses: []scriptedResponse{{err: boom}, {err: boom}, {err: boom}}}
	var waits []time.Duration
	f := NewRetryingFetcher(tr, noSleepPolicy(&waits))

	_, err := f.Fetch(context.Background(), "https://myanimelist.net/anime/1/x/stats")
	require.Error(t, err)

	var ff *FetchFailure
	require.ErrorAs(t, err, &ff)
	assert.Equal(t, "https://myanimelist.net/anime/1/x/stats", ff.URL)
	assert.Equal(t, 3, ff.Attempts)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, tr.calls, 3)
	// Backoffs grow between attempts and stop after the last one.
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second, 2 * time.Second, time.Second}, waits)
}

func TestFetch_CancelledContext(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{responses: []scriptedResponse{{body: "never"}}}
	var waits []time.Duration
	f := NewRetryingFetcher(tr, noSleepPolicy(&waits))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "https://myanimelist.net/topanime.php")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tr.calls)
}
