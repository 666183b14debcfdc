package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{"unset uses default", "", true, true},
		{"true", "true", false, true},
		{"numeric true", "1", false, true},
		{"yes", "YES", false, true},
		{"on", "on", false, true},
		{"false", "false", true, false},
		{"numeric false", "0", true, false},
		{"off with spaces", "  off  ", true, false},
		{"garbage uses default", "maybe", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("FLOWBOT_TEST_BOOL", tt.value)
			}
			if got := ParseBoolEnv("FLOWBOT_TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{"unset uses default", "", time.Hour, time.Hour},
		{"minutes", "30m", time.Hour, 30 * time.Minute},
		{"hours", "2h", time.Hour, 2 * time.Hour},
		{"garbage uses default", "soon", time.Hour, time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("FLOWBOT_TEST_DURATION", tt.value)
			}
			if got := ParseDurationEnv("FLOWBOT_TEST_DURATION", tt.def); got != tt.expected {
				t.Errorf("ParseDurationEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
			}
		})
	}
}
