package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHandlerPicksJSONForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Level: slog.LevelInfo, Component: ComponentScraper})
	l.Info("hello", FieldSourceURL, "https://example.test/a.csv")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentScraper {
		t.Errorf("component = %v", entry[FieldComponent])
	}
	if entry[FieldSourceURL] != "https://example.test/a.csv" {
		t.Errorf("source_url = %v", entry[FieldSourceURL])
	}
}

func TestNewHandlerForcedText(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Format: "text"})
	l.Warn("careful")
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}

func TestStructuredLoggerSourceFailure(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, Format: "json"}))
	sl.LogSourceFailure(context.Background(), "https://x.test", "timeout", errors.New("deadline exceeded"))

	out := buf.String()
	for _, want := range []string{`"error_kind":"timeout"`, `"source_url":"https://x.test"`, `"level":"WARN"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	base := Discard().WithComponent(ComponentHTTP)
	var seen *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("logger not propagated: %+v", seen)
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}
