package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	var got string
	original := SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	defer SetLogger(original)

	Logf("seeded %d points", 12)
	if got != "seeded 12 points" {
		t.Errorf("custom logger got %q", got)
	}

	// nil mutes without touching the previous sink.
	got = ""
	prev := SetLogger(nil)
	Logf("muted")
	if got != "" {
		t.Errorf("no-op logger should not reach the previous sink, got %q", got)
	}
	if prev == nil {
		t.Error("SetLogger should return the replaced logger")
	}
}

func TestLogf_Default(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()
	original := SetLogger(nil)
	defer SetLogger(original)
	Logf("test %s", "message")
}
