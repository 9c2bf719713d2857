package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// sleepRecorder captures backoff delays without sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.delays)
}

func newTestProber(rec *sleepRecorder, opts ...Option) *Prober {
	return New(append([]Option{WithSleep(rec.sleep), WithTimeout(2 * time.Second)}, opts...)...)
}

func TestProbe_HeadSuccess(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if got := r.Header.Get("Cache-Control"); got != "no-store" {
			t.Errorf("Cache-Control = %q, want no-store", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	res := newTestProber(rec).Check(context.Background(), server.URL+"/react@18/index.js", DefaultOptions())
	if !res.Reachable {
		t.Fatalf("expected reachable, got %+v", res)
	}
	if res.Attempts != 1 || requests.Load() != 1 {
		t.Errorf("attempts = %d, requests = %d, want 1/1", res.Attempts, requests.Load())
	}
	if len(rec.recorded()) != 0 {
		t.Errorf("unexpected sleeps: %v", rec.recorded())
	}
}

func TestProbe_GetFallback(t *testing.T) {
	for _, status := range []int{http.StatusMethodNotAllowed, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var heads, gets atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodHead {
					heads.Add(1)
					w.WriteHeader(status)
					return
				}
				gets.Add(1)
				_, _ = w.Write([]byte("window.lib = {};"))
			}))
			defer server.Close()

			rec := &sleepRecorder{}
			res := newTestProber(rec).Check(context.Background(), server.URL+"/lib.js", DefaultOptions())
			if !res.Reachable {
				t.Fatalf("expected reachable through GET, got %+v", res)
			}
			if res.Attempts != 1 {
				t.Errorf("attempts = %d, want 1", res.Attempts)
			}
			if heads.Load() != 1 || gets.Load() != 1 {
				t.Errorf("heads = %d, gets = %d, want 1/1", heads.Load(), gets.Load())
			}
		})
	}
}

func TestProbe_GetFallbackDisabled(t *testing.T) {
	var gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.AllowGetFallback = false

	rec := &sleepRecorder{}
	if newTestProber(rec).ProbeWith(context.Background(), server.URL, opts) {
		t.Fatal("expected unreachable without GET fallback")
	}
	if gets.Load() != 0 {
		t.Errorf("GET issued %d times with fallback disabled", gets.Load())
	}
	if len(rec.recorded()) != 0 {
		t.Errorf("405 must not be retried, sleeps: %v", rec.recorded())
	}
}

func TestProbe_ForbiddenGetFails(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	res := newTestProber(rec).Check(context.Background(), server.URL, DefaultOptions())
	if res.Reachable {
		t.Fatal("expected unreachable")
	}
	if res.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", res.Status)
	}
	if res.Attempts != 1 || requests.Load() != 2 {
		t.Errorf("attempts = %d, requests = %d, want 1 attempt with HEAD+GET", res.Attempts, requests.Load())
	}
}

func TestProbe_RetryThenSuccess(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	res := newTestProber(rec).Check(context.Background(), server.URL, DefaultOptions())
	if !res.Reachable {
		t.Fatalf("expected reachable after retry, got %+v", res)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
	if got := rec.recorded(); !slices.Equal(got, []time.Duration{300 * time.Millisecond}) {
		t.Errorf("sleeps = %v, want [300ms]", got)
	}
}

func TestProbe_ExhaustsRetries(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	res := newTestProber(rec).Check(context.Background(), server.URL, DefaultOptions())
	if res.Reachable {
		t.Fatal("expected unreachable")
	}
	if res.Attempts != DefaultRetries+1 || requests.Load() != DefaultRetries+1 {
		t.Errorf("attempts = %d, requests = %d, want %d", res.Attempts, requests.Load(), DefaultRetries+1)
	}
	want := []time.Duration{300 * time.Millisecond, 450 * time.Millisecond}
	if got := rec.recorded(); !slices.Equal(got, want) {
		t.Errorf("sleeps = %v, want %v", got, want)
	}
}

func TestProbe_AttemptBound(t *testing.T) {
	tests := []struct {
		retries  int
		attempts int
	}{
		{retries: 0, attempts: 1},
		{retries: 1, attempts: 2},
		{retries: 4, attempts: 5},
		{retries: -3, attempts: 1},
	}

	for _, tt := range tests {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))

		rec := &sleepRecorder{}
		opts := Options{Retries: tt.retries, Backoff: 10 * time.Millisecond}
		res := newTestProber(rec).Check(context.Background(), server.URL, opts)
		server.Close()

		if res.Attempts != tt.attempts || int(requests.Load()) != tt.attempts {
			t.Errorf("retries=%d: attempts = %d, requests = %d, want %d",
				tt.retries, res.Attempts, requests.Load(), tt.attempts)
		}
		if len(rec.recorded()) != tt.attempts-1 {
			t.Errorf("retries=%d: sleeps = %v", tt.retries, rec.recorded())
		}
	}
}

func TestProbe_NotFoundNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	if newTestProber(rec).Probe(context.Background(), server.URL+"/missing.js") {
		t.Fatal("expected 404 to be unreachable")
	}
	if requests.Load() != 1 {
		t.Errorf("requests = %d, want 1", requests.Load())
	}
}

func TestProbe_TransportErrorRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	rec := &sleepRecorder{}
	res := newTestProber(rec).Check(context.Background(), target, DefaultOptions())
	if res.Reachable {
		t.Fatal("expected closed server to be unreachable")
	}
	if res.Err == nil {
		t.Error("expected transport error to be recorded")
	}
	if res.Attempts != DefaultRetries+1 {
		t.Errorf("attempts = %d, want %d", res.Attempts, DefaultRetries+1)
	}
}

func TestProbe_ContextCanceled(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &sleepRecorder{}
	res := newTestProber(rec).Check(ctx, server.URL, DefaultOptions())
	if res.Reachable {
		t.Fatal("expected canceled probe to fail")
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Attempts)
	}
	if len(rec.recorded()) != 0 {
		t.Errorf("canceled probe must not back off, sleeps: %v", rec.recorded())
	}
}

func TestProbe_RelativeURLWithBase(t *testing.T) {
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	p := newTestProber(rec, WithBaseURL(server.URL))
	if !p.Probe(context.Background(), "/vendor/lib@1.0.0/lib.js") {
		t.Fatal("expected root-relative URL to resolve against the base")
	}
	if got := path.Load(); got != "/vendor/lib@1.0.0/lib.js" {
		t.Errorf("path = %v", got)
	}
}

func TestProbe_RelativeURLWithoutBase(t *testing.T) {
	rec := &sleepRecorder{}
	res := newTestProber(rec).Check(context.Background(), "/vendor/lib.js", DefaultOptions())
	if res.Reachable {
		t.Fatal("relative URL without a base must be unreachable")
	}
}

func TestProbe_AttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	rec := &sleepRecorder{}
	p := New(WithSleep(rec.sleep), WithTimeout(50*time.Millisecond))
	res := p.Check(context.Background(), server.URL, Options{Retries: 1, Backoff: time.Millisecond})
	if res.Reachable {
		t.Fatal("expected timeout to make the URL unreachable")
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2 (timeouts are retried)", res.Attempts)
	}
}

func TestShouldRetryStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{0, true},
		{200, false},
		{403, false},
		{404, false},
		{405, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}
	for _, tt := range tests {
		if got := ShouldRetryStatus(tt.status); got != tt.expected {
			t.Errorf("ShouldRetryStatus(%d) = %v, want %v", tt.status, got, tt.expected)
		}
	}
}

func TestSchedule(t *testing.T) {
	b := newSchedule(300 * time.Millisecond)
	want := []time.Duration{300 * time.Millisecond, 450 * time.Millisecond, 675 * time.Millisecond}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("delay %d = %v, want %v", i, got, w)
		}
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); err == nil {
		t.Error("sleepContext must return when the context is canceled")
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() = %v", err)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Retries != 2 || opts.Backoff != 300*time.Millisecond || !opts.AllowGetFallback {
		t.Errorf("DefaultOptions() = %+v", opts)
	}
	if got := New().Options(); got != opts {
		t.Errorf("New().Options() = %+v, want defaults", got)
	}
}
