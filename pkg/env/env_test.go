package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("POS_LOG_FORMAT", "console")
	if got := Get("POS_LOG_FORMAT", "json"); got != "console" {
		t.Fatalf("expected console, got %q", got)
	}
	t.Setenv("POS_LOG_FORMAT", "")
	if got := Get("POS_LOG_FORMAT", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
