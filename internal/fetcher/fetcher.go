package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kkyouma/myanimelist-scraper/internal/resilience"
)

// Transport performs a single GET and returns the body text. It is the only
// network boundary of the scraper.
type Transport interface {
	Get(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// ErrEmptyBody is returned for a 200 response with no content.
var ErrEmptyBody = eris.New("fetcher: empty body")

// FetchFailure reports that every attempt to fetch URL failed.
type FetchFailure struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchFailure) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchFailure) Unwrap() error {
	return e.Err
}

// RetryingFetcher fetches pages through a Transport, applying the policy's
// politeness delay and exponential backoff.
type RetryingFetcher struct {
	transport Transport
	policy    resilience.Policy
}

// NewRetryingFetcher creates a RetryingFetcher.
func NewRetryingFetcher(t Transport, p resilience.Policy) *RetryingFetcher {
	return &RetryingFetcher{transport: t, policy: p}
}

// Fetch returns the body of url, or a *FetchFailure once the policy's
// attempts are exhausted.
func (f *RetryingFetcher) Fetch(ctx context.Context, url string) (string, error) {
	p := f.policy
	if p.OnRetry == nil {
		p.OnRetry = resilience.RetryLogger("fetch", url)
	}

	body, attempts, err := resilience.DoVal(ctx, p, func(ctx context.Context) (string, error) {
		body, err := f.transport.Get(ctx, url, p.Timeout)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(body) == "" {
			return "", ErrEmptyBody
		}
		return body, nil
	})
	if err != nil {
		return "", &FetchFailure{URL: url, Attempts: attempts, Err: err}
	}
	return body, nil
}
