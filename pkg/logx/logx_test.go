package logx

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFormatTelegramLine(t *testing.T) {
	t.Parallel()
	line := []byte(`{"level":"warn","time":"x","message":"relay failed","chat_id":-100,"comp":"relay"}`)
	got := formatTelegramLine(line)
	want := "[WARN] relay failed\n- chat_id=-100\n- comp=relay"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := formatTelegramLine([]byte("  not json  ")); got != "not json" {
		t.Fatalf("raw line=%q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	if got := truncate(strings.Repeat("a", 20), 12); got != strings.Repeat("a", 9)+"..." {
		t.Fatalf("truncate=%q", got)
	}
	if got := truncate("short", 12); got != "short" {
		t.Fatalf("truncate=%q", got)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		" Warning": zerolog.WarnLevel,
		"ERROR":    zerolog.ErrorLevel,
		"bogus":    zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in, zerolog.InfoLevel); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	t.Parallel()
	l := Nop().With(String("comp", "test"))
	l.Info("ignored", Int("n", 1), Err(nil))
}
