package validation

import (
	"os"
	"strconv"
	"strings"
)

// MaxMessageLength returns the maximum accepted message length in characters.
// Over-length messages are rejected, not truncated.
func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 1000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 1000
	}
	return max
}

// NormalizeMessageText trims surrounding whitespace. Length checks run on the
// normalized text.
func NormalizeMessageText(s string) string {
	return strings.TrimSpace(s)
}

// ValidMessageText reports whether the already-normalized text is non-empty
// and within the length limit. Length is counted in runes so multi-byte
// characters are not penalized.
func ValidMessageText(s string) bool {
	if s == "" {
		return false
	}
	return len([]rune(s)) <= MaxMessageLength()
}

// ValidUserID reports whether an identifier is usable. Zero is reserved for
// the synthetic system sender.
func ValidUserID(id uint) bool {
	return id != 0
}
