package validation

import (
	"os"
	"strings"
	"testing"
)

func TestMaxMessageLength(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected int
	}{
		{"Default when unset", "", 1000},
		{"Custom value", "500", 500},
		{"Invalid value falls back", "abc", 1000},
		{"Zero falls back", "0", 1000},
		{"Negative falls back", "-5", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue == "" {
				os.Unsetenv("MAX_MESSAGE_LENGTH")
			} else {
				os.Setenv("MAX_MESSAGE_LENGTH", tt.envValue)
			}
			defer os.Unsetenv("MAX_MESSAGE_LENGTH")

			result := MaxMessageLength()
			if result != tt.expected {
				t.Errorf("MaxMessageLength() = %d, want %d", result, tt.expected)
			}
		})
	}
}

func TestNormalizeMessageText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"Trims leading and trailing space", "  hello  ", "hello"},
		{"Trims newlines and tabs", "\n\thi\t\n", "hi"},
		{"All whitespace becomes empty", "   \t\n ", ""},
		{"Inner whitespace preserved", "a  b", "a  b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeMessageText(tt.text)
			if result != tt.expected {
				t.Errorf("NormalizeMessageText(%q) = %q, want %q", tt.text, result, tt.expected)
			}
		})
	}
}

func TestValidMessageText(t *testing.T) {
	os.Unsetenv("MAX_MESSAGE_LENGTH")

	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"Normal text", "hello", true},
		{"Empty text", "", false},
		{"Exactly at limit", strings.Repeat("a", 1000), true},
		{"One over limit", strings.Repeat("a", 1001), false},
		{"Multi-byte runes counted as one", strings.Repeat("é", 1000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidMessageText(tt.text)
			if result != tt.expected {
				t.Errorf("ValidMessageText(len %d) = %v, want %v", len(tt.text), result, tt.expected)
			}
		})
	}
}

func TestValidUserID(t *testing.T) {
	if ValidUserID(0) {
		t.Error("ValidUserID(0) = true, want false")
	}
	if !ValidUserID(1) {
		t.Error("ValidUserID(1) = false, want true")
	}
}
