package main

import (
	"strings"
	"testing"
)

// FuzzSanitizeHost checks that sanitized hosts only contain the allowed
// filename characters and that sanitizing twice changes nothing.
func FuzzSanitizeHost(f *testing.F) {
	for _, s := range []string{
		"example.com",
		"exa*mple.com",
		"sub.do—main.co",
		"under_score.test",
		"::1",
		"ünïcødé.test",
		"a b\tc",
		"\xff\xfe",
		"",
	} {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, host string) {
		once := sanitizeHost(host)
		for _, r := range once {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '-') {
				t.Fatalf("sanitizeHost(%q) = %q contains %q", host, once, r)
			}
		}
		if twice := sanitizeHost(once); twice != once {
			t.Fatalf("sanitizeHost not idempotent: %q -> %q -> %q", host, once, twice)
		}
		if strings.Count(once, "-") < strings.Count(host, "-") {
			t.Fatalf("sanitizeHost(%q) = %q dropped hyphens", host, once)
		}
	})
}
