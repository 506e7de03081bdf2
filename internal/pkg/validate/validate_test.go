package validate

import (
	"strings"
	"testing"
)

func TestRequired(t *testing.T) {
	if Required("  \t") {
		t.Fatalf("blank value must not pass")
	}
	if !Required(" x ") {
		t.Fatalf("non-blank value must pass")
	}
}

func TestTextCountsRunes(t *testing.T) {
	if !Text(strings.Repeat("ж", 4), 4) {
		t.Fatalf("four cyrillic runes fit a four-rune limit")
	}
	if Text(strings.Repeat("ж", 5), 4) {
		t.Fatalf("five runes exceed a four-rune limit")
	}
	if !Text("  hi  ", 2) {
		t.Fatalf("surrounding spaces are trimmed before counting")
	}
	if Text("   ", 10) {
		t.Fatalf("blank text must not pass")
	}
	if !Text(strings.Repeat("a", 10000), 0) {
		t.Fatalf("zero limit means unbounded")
	}
}
