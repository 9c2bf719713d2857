package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	cdnmod "github.com/albertocavalcante/go-cdnmod"
	"github.com/albertocavalcante/go-cdnmod/probe"
)

// logRecords decodes JSON log lines into their "msg" fields.
func logRecords(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var msgs []string
	dec := json.NewDecoder(buf)
	for dec.More() {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decode log record: %v", err)
		}
		msgs = append(msgs, rec["msg"].(string))
	}
	return msgs
}

func TestDiagnostic_TriedListSpansOrigins(t *testing.T) {
	primary := newOrigin(t, nil)
	mirror := newOrigin(t, nil)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := cdnmod.New(
		cdnmod.WithDefaultProvider(primary.URL),
		cdnmod.WithFallbackProviders(mirror.URL),
		cdnmod.WithProbeOptions(probe.Options{Retries: 0}),
		cdnmod.WithLookupEnv(func(string) (string, bool) { return "", false }),
		cdnmod.WithLogger(logger),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Resolve(context.Background(), cdnmod.ModuleDescriptor{
		Name:    "chart",
		Version: "4.0.0",
		File:    "chart.umd.js",
	})

	var resErr *cdnmod.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("error = %v, want *ResolutionError", err)
	}
	want := []string{
		primary.URL + "/chart@4.0.0/chart.umd.js",
		primary.URL + "/chart@4.0.0/umd/chart.umd.js",
		primary.URL + "/chart@4.0.0/dist/chart.umd.js",
		mirror.URL + "/chart@4.0.0/chart.umd.js",
		mirror.URL + "/chart@4.0.0/umd/chart.umd.js",
		mirror.URL + "/chart@4.0.0/dist/chart.umd.js",
	}
	if !slices.Equal(resErr.Tried, want) {
		t.Errorf("Tried = %v\nwant  %v", resErr.Tried, want)
	}
	if !strings.Contains(err.Error(), "unable to resolve URL for module chart (tried: ") {
		t.Errorf("message = %q", err.Error())
	}

	msgs := logRecords(t, &logs)
	probeFailures := 0
	for _, m := range msgs {
		if m == "probe failed" {
			probeFailures++
		}
	}
	if probeFailures != len(want) {
		t.Errorf("probe failed records = %d, want %d", probeFailures, len(want))
	}
	if !slices.Contains(msgs, "module resolution failed") {
		t.Errorf("missing resolution failure record in %v", msgs)
	}
}

func TestDiagnostic_CanceledContextStopsProbing(t *testing.T) {
	primary := newOrigin(t, nil)
	primary.setDown(true)

	client, err := cdnmod.New(
		cdnmod.WithDefaultProvider(primary.URL),
		cdnmod.WithProbeOptions(probe.Options{Retries: 5, Backoff: time.Hour}),
		cdnmod.WithLookupEnv(func(string) (string, bool) { return "", false }),
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.Resolve(ctx, cdnmod.ModuleDescriptor{Name: "slow", Path: "slow.js"})
	if err == nil {
		t.Fatal("Resolve() error = nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Resolve() took %v after cancellation", elapsed)
	}
	if got := len(primary.requests()); got != 1 {
		t.Errorf("requests = %d, want 1 before the backoff was interrupted", got)
	}
}
