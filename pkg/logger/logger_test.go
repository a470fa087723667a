package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_ServiceField(t *testing.T) {
	Reset()
	t.Cleanup(func() {
		Reset()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	var buf bytes.Buffer
	log := Init(Options{Level: "debug", Output: &buf, Service: "auth-service"})
	log.Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid json line %q: %v", buf.String(), err)
	}
	if line["service"] != "auth-service" || line["message"] != "hello" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestInit_OnlyOnce(t *testing.T) {
	Reset()
	t.Cleanup(func() {
		Reset()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	var first, second bytes.Buffer
	Init(Options{Output: &first})
	secondLog := Init(Options{Output: &second})
	secondLog.Info().Msg("x")

	if second.Len() != 0 || first.Len() == 0 {
		t.Fatal("second Init must return the first logger")
	}
}

func TestGet_BeforeInitPanics(t *testing.T) {
	Reset()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Get()
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" DEBUG ": zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	var scoped, fallback bytes.Buffer
	ctx := NewContext(context.Background(), zerolog.New(&scoped).With().Str("request_id", "r-1").Logger())

	scopedLog := FromContext(ctx, zerolog.New(&fallback))
	scopedLog.Info().Msg("scoped")
	plainLog := FromContext(context.Background(), zerolog.New(&fallback))
	plainLog.Info().Msg("plain")

	var line map[string]any
	if err := json.Unmarshal(scoped.Bytes(), &line); err != nil {
		t.Fatalf("invalid json line %q: %v", scoped.String(), err)
	}
	if line["request_id"] != "r-1" || line["message"] != "scoped" {
		t.Fatalf("unexpected scoped line: %v", line)
	}
	if !bytes.Contains(fallback.Bytes(), []byte(`"plain"`)) || bytes.Contains(fallback.Bytes(), []byte("scoped")) {
		t.Fatalf("unexpected fallback output: %s", fallback.String())
	}
}

func TestGet_AfterInit(t *testing.T) {
	Reset()
	t.Cleanup(func() {
		Reset()
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	var buf bytes.Buffer
	Init(Options{Output: &buf, Service: "auth-service"})
	got := Get()
	got.Info().Msg("from get")

	if !bytes.Contains(buf.Bytes(), []byte(`"service":"auth-service"`)) {
		t.Fatalf("Get must return the initialised logger, got %s", buf.String())
	}
}
