package utils

import (
	"testing"
	"time"
)

func TestMatchesPeriod(t *testing.T) {
	date := time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		month, year int
		want        bool
	}{
		{0, 0, true},
		{11, 0, true},
		{0, 2025, true},
		{11, 2025, true},
		{10, 2025, false},
		{11, 2024, false},
		// Independent filters: month matches even in the wrong year
		// when year is unset, and vice versa.
		{11, 0, true},
		{0, 2024, false},
	}
	for _, c := range cases {
		if got := MatchesPeriod(date, c.month, c.year); got != c.want {
			t.Errorf("MatchesPeriod(%v, %d, %d) = %v, want %v", date, c.month, c.year, got, c.want)
		}
	}
}

func TestSafeInt(t *testing.T) {
	if got := SafeInt("42", 0); got != 42 {
		t.Fatalf("SafeInt(42) = %d", got)
	}
	if got := SafeInt(" 7 ", 0); got != 7 {
		t.Fatalf("SafeInt with spaces = %d", got)
	}
	if got := SafeInt("", 5); got != 5 {
		t.Fatalf("SafeInt empty = %d, want default", got)
	}
	if got := SafeInt("abc", -1); got != -1 {
		t.Fatalf("SafeInt invalid = %d, want default", got)
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("UniqueSlice = %v, want [3 1 2] (order preserved)", got)
	}
}

func TestRandomCodeShape(t *testing.T) {
	code := RandomCode(6)
	if len(code) != 6 {
		t.Fatalf("len = %d, want 6", len(code))
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			t.Fatalf("code %q contains %q", code, r)
		}
	}
}
