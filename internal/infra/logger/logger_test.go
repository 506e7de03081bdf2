package logger

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud", "prod"); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestNewBuildsForEachEnv(t *testing.T) {
	for _, env := range []string{"dev", "prod", ""} {
		log, err := New("info", env)
		if err != nil {
			t.Fatalf("new logger for env %q: %v", env, err)
		}
		if log.Core().Enabled(-1) {
			t.Fatalf("debug must be disabled at info level for env %q", env)
		}
		_ = log.Sync()
	}
}
