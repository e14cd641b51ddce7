package config

import (
	"strings"
	"testing"
	"time"
)

func FuzzEnvOrDefault(f *testing.F) {
	f.Add("", ":9090")
	f.Add("  :8080  ", ":9090")

	f.Fuzz(func(t *testing.T, value, fallback string) {
		if strings.ContainsRune(value, '\x00') {
			t.Skip()
		}

		const key = "RULEFOLD_TEST_ENV_OR_DEFAULT"
		t.Setenv(key, value)

		got := envOrDefault(key, fallback)
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			if got != fallback {
				t.Fatalf("envOrDefault() = %q, want fallback %q", got, fallback)
			}
			return
		}

		if got != trimmed {
			t.Fatalf("envOrDefault() = %q, want trimmed value %q", got, trimmed)
		}
	})
}

func FuzzDurationEnv(f *testing.F) {
	f.Add("")
	f.Add("1s")
	f.Add("0s")
	f.Add("-1s")
	f.Add("garbage")

	f.Fuzz(func(t *testing.T, value string) {
		if strings.ContainsRune(value, '\x00') {
			t.Skip()
		}

		const key = "RULEFOLD_TEST_DURATION"
		t.Setenv(key, value)

		got, err := durationEnv(key)
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			if err != nil || got != 0 {
				t.Fatalf("durationEnv() on empty = (%v, %v), want (0, nil)", got, err)
			}
			return
		}

		parsed, parseErr := time.ParseDuration(trimmed)
		if parseErr != nil || parsed <= 0 {
			if err == nil {
				t.Fatalf("durationEnv(%q) accepted an invalid duration", value)
			}
			return
		}
		if err != nil || got != parsed {
			t.Fatalf("durationEnv(%q) = (%v, %v), want (%v, nil)", value, got, err, parsed)
		}
	})
}
