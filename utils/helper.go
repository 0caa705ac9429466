package utils

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// SafeInt parses s, returning def when empty or invalid.
func SafeInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func UniqueSlice[T comparable](items []T) []T {
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// MatchesPeriod reports whether date falls in the optional month/year
// window. month/year of 0 mean "no filter" and are applied independently,
// matching the original report filters.
func MatchesPeriod(date time.Time, month, year int) bool {
	if month != 0 && int(date.Month()) != month {
		return false
	}
	if year != 0 && date.Year() != year {
		return false
	}
	return true
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomCode returns an n-character uppercase alphanumeric code.
// Uniqueness is the caller's problem.
func RandomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
