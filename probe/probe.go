package probe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Probe defaults.
const (
	DefaultRetries        = 2
	DefaultBackoff        = 300 * time.Millisecond
	DefaultAttemptTimeout = 10 * time.Second

	// BackoffMultiplier is the growth factor between consecutive retry delays.
	BackoffMultiplier = 1.5

	// UserAgent is sent with every probe request.
	UserAgent = "go-cdnmod/1.0"
)

// Transport defaults.
const (
	DefaultMaxIdleConns        = 50
	DefaultMaxIdleConnsPerHost = 20
	DefaultIdleConnTimeout     = 90 * time.Second
)

// maxBackoff caps a single delay. It is far above anything reachable with
// sane retry counts and only guards against overflow.
const maxBackoff = time.Hour

// drainLimit bounds how much of a response body is read before closing.
const drainLimit = 64 << 10

// Options controls a single probe.
type Options struct {
	// Retries is the number of retries after the first attempt.
	Retries int

	// Backoff is the delay before the first retry.
	Backoff time.Duration

	// AllowGetFallback retries a 405/403 HEAD response with GET in the same attempt.
	AllowGetFallback bool
}

// DefaultOptions returns Retries=2, Backoff=300ms, AllowGetFallback=true.
func DefaultOptions() Options {
	return Options{
		Retries:          DefaultRetries,
		Backoff:          DefaultBackoff,
		AllowGetFallback: true,
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Result describes the outcome of a probe.
type Result struct {
	URL       string
	Reachable bool

	// Attempts is the number of attempts made, at most Retries+1.
	Attempts int

	// Status is the last HTTP status seen, 0 if none.
	Status int

	// Err is the last transport error, if any.
	Err error
}

// Prober checks URL reachability with bounded retries.
// A Prober is safe for concurrent use.
type Prober struct {
	client         *http.Client
	opts           Options
	attemptTimeout time.Duration
	baseURL        *url.URL
	sleep          SleepFunc
	logger         *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		if client != nil {
			p.client = client
		}
	}
}

// WithOptions sets the default probe options.
func WithOptions(opts Options) Option {
	return func(p *Prober) {
		p.opts = opts
	}
}

// WithTimeout sets the timeout of each attempt.
// Zero or negative values fall back to DefaultAttemptTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		if timeout > 0 {
			p.attemptTimeout = timeout
		} else {
			p.attemptTimeout = DefaultAttemptTimeout
		}
	}
}

// WithBaseURL sets the origin that root-relative candidates are resolved against.
func WithBaseURL(base string) Option {
	return func(p *Prober) {
		if u, err := url.Parse(base); err == nil && u.IsAbs() {
			p.baseURL = u
		}
	}
}

// WithSleep replaces the backoff sleep. Tests use it to observe delays.
func WithSleep(sleep SleepFunc) Option {
	return func(p *Prober) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithLogger sets a logger for probe diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Prober with DefaultOptions.
func New(opts ...Option) *Prober {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	p := &Prober{
		client:         &http.Client{Transport: transport},
		opts:           DefaultOptions(),
		attemptTimeout: DefaultAttemptTimeout,
		sleep:          sleepContext,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Options returns the default options of the prober.
func (p *Prober) Options() Options {
	return p.opts
}

// Probe reports whether rawURL is reachable using the prober's options.
func (p *Prober) Probe(ctx context.Context, rawURL string) bool {
	return p.Check(ctx, rawURL, p.opts).Reachable
}

// ProbeWith reports whether rawURL is reachable using opts.
func (p *Prober) ProbeWith(ctx context.Context, rawURL string, opts Options) bool {
	return p.Check(ctx, rawURL, opts).Reachable
}

// Check probes rawURL and returns the detailed outcome.
func (p *Prober) Check(ctx context.Context, rawURL string, opts Options) Result {
	res := Result{URL: rawURL}

	target, err := p.resolve(rawURL)
	if err != nil {
		// A malformed URL will not get better with retries.
		res.Err = err
		p.logger.DebugContext(ctx, "probe failed", "url", rawURL, "error", err)
		return res
	}

	retries := max(opts.Retries, 0)
	schedule := newSchedule(opts.Backoff)

	for {
		res.Attempts++
		res.Status, res.Err = p.attempt(ctx, target, opts.AllowGetFallback)
		if res.Err == nil && isSuccess(res.Status) {
			res.Reachable = true
			return res
		}

		retryable := res.Err != nil || ShouldRetryStatus(res.Status)
		if !retryable || retries == 0 || ctx.Err() != nil {
			p.logger.DebugContext(ctx, "probe failed",
				"url", rawURL,
				"status", res.Status,
				"error", res.Err,
				"attempts", res.Attempts)
			return res
		}

		retries--
		if err := p.sleep(ctx, schedule.NextBackOff()); err != nil {
			res.Err = err
			return res
		}
	}
}

// ShouldRetryStatus reports whether an HTTP status is worth retrying:
// 0 (no response), 429, or any 5xx.
func ShouldRetryStatus(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

// attempt performs one HEAD request, escalating to GET on 405/403 when allowed.
func (p *Prober) attempt(ctx context.Context, target string, allowGet bool) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	status, err := p.do(ctx, http.MethodHead, target)
	if err != nil || isSuccess(status) {
		return status, err
	}

	if allowGet && (status == http.StatusMethodNotAllowed || status == http.StatusForbidden) {
		return p.do(ctx, http.MethodGet, target)
	}
	return status, nil
}

func (p *Prober) do(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, http.NoBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Cache-Control", "no-store")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
		_ = resp.Body.Close()
	}()
	return resp.StatusCode, nil
}

func (p *Prober) resolve(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() && p.baseURL != nil {
		u = p.baseURL.ResolveReference(u)
	}
	return u.String(), nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// newSchedule returns a deterministic exponential schedule:
// initial, initial*1.5, initial*1.5^2, ...
func newSchedule(initial time.Duration) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0,
		Multiplier:          BackoffMultiplier,
		MaxInterval:         maxBackoff,
	}
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
