package fetcher

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/kkyouma/myanimelist-scraper/internal/resilience"
)

// DefaultUserAgent is a desktop Chrome user agent. The catalog serves
// reduced markup to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const maxBodyBytes = 8 << 20

// HTTPOptions configures the HTTP transport.
type HTTPOptions struct {
	UserAgent string
	// HostRPS caps requests per second per host. Zero disables the cap.
	HostRPS float64
	// Client overrides the default client, mainly for tests.
	Client *http.Client
}

// AdaptiveLimiter wraps a rate.Limiter that slows down after 429 responses
// and recovers gradually on success, never exceeding its initial rate.
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter starting at initialRate.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%, up to the initial rate.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.initialRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate, down to a quarter of the initial rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("fetcher: reducing host rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPTransport implements Transport over a single reused http.Client with
// browser-like headers and a per-host rate ceiling.
type HTTPTransport struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPTransport creates an HTTPTransport with the given options.
func NewHTTPTransport(opts HTTPOptions) *HTTPTransport {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPTransport{
		client:   client,
		opts:     opts,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

// limiterFor returns the host's limiter, or nil when no cap is configured.
func (t *HTTPTransport) limiterFor(rawURL string) *AdaptiveLimiter {
	if t.opts.HostRPS <= 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	lim, ok := t.limiters[u.Host]
	if !ok {
		lim = NewAdaptiveLimiter(rate.Limit(t.opts.HostRPS), 1)
		t.limiters[u.Host] = lim
	}
	return lim
}

// Get performs one GET of rawURL bounded by timeout. Any response other than
// a 200 with catalog content is an error; 408, 429 and 5xx responses are
// marked transient.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	lim := t.limiterFor(rawURL)
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "fetcher: rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", t.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: get")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "fetcher: read body")
	}

	if blocked, bt := DetectBlock(resp, body); blocked {
		return "", resilience.NewTransientError(
			eris.Errorf("fetcher: blocked (%s) at %s", bt, rawURL), resp.StatusCode)
	}

	if resp.StatusCode == http.StatusTooManyRequests && lim != nil {
		lim.OnRateLimit()
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}
	if lim != nil {
		lim.OnSuccess()
	}

	text, err := decodeBody(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	return text, nil
}

// decodeBody converts body to UTF-8 using the charset declared in the
// Content-Type header. Bodies without a declared charset are assumed UTF-8.
func decodeBody(body []byte, contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}
	cs := strings.ToLower(strings.TrimSpace(params["charset"]))
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return string(body), nil
	}

	enc, err := htmlindex.Get(cs)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: unsupported charset %q", cs)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: decode %s body", cs)
	}
	return string(out), nil
}
