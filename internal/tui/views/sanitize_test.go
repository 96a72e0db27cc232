package views

import "testing"

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"skin tone", "👍\U0001F3FB", "👍"},
		{"zwj sequence", "👨‍👩", "👨👩"},
		{"variation selector", "❤️", "❤"},
		{"escape sequence", "\x1b[31mred", "[31mred"},
		{"keeps newlines", "a\n\tb", "a\n\tb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeForTerminal(tt.in); got != tt.want {
				t.Errorf("sanitizeForTerminal(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
