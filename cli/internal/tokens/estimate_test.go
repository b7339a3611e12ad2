package tokens

import (
	"strings"
	"testing"
)

func TestEstimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		if got := Estimate(tc.in); got != tc.want {
			t.Errorf("Estimate(%d bytes) = %d, want %d", len(tc.in), got, tc.want)
		}
	}
}

func TestWarnIfOver(t *testing.T) {
	t.Parallel()
	if got := WarnIfOver(100, 100, 0, 0.8); got != "" {
		t.Errorf("disabled limit warned: %q", got)
	}
	if got := WarnIfOver(100, 100, 32768, 0.8); got != "" {
		t.Errorf("small prompt warned: %q", got)
	}
	if got := WarnIfOver(7000, DefaultResponseReserve, 8192, 0.8); got == "" {
		t.Errorf("oversized prompt did not warn")
	}
}
