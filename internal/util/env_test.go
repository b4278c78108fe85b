package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"garbage", true, true},
		{" true ", false, true},
	}
	for _, c := range cases {
		t.Setenv("TEST_BOOL_ENV", c.value)
		if got := ParseBoolEnv("TEST_BOOL_ENV", c.def); got != c.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", c.value, c.def, got, c.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	cases := []struct {
		value string
		want  time.Duration
	}{
		{"45m", 45 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{" 10s ", 10 * time.Second},
		{"", time.Minute},
		{"not-a-duration", time.Minute},
	}
	for _, c := range cases {
		t.Setenv("TEST_DURATION_ENV", c.value)
		if got := ParseDurationEnv("TEST_DURATION_ENV", time.Minute); got != c.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", c.value, got, c.want)
		}
	}
}
