package random

import (
	"strings"
	"testing"
)

func TestStringUsesCharset(t *testing.T) {
	value := String(256, []rune("ab"))
	if len(value) != 256 {
		t.Fatalf("expected length 256, got %d", len(value))
	}
	if strings.Trim(value, "ab") != "" {
		t.Fatalf("unexpected characters in %q", value)
	}
}

func TestStringIsRandom(t *testing.T) {
	if String(32, CharsetTokens) == String(32, CharsetTokens) {
		t.Fatal("expected two generated strings to differ")
	}
}
