package util

import "testing"

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "clean text unchanged", input: "Hon. Member for Kisumu", want: "Hon. Member for Kisumu"},
		{name: "nul bytes removed", input: "order\x00paper", want: "orderpaper"},
		{name: "invalid utf8 removed", input: "bill\xc3\x28text", want: "bill(text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "single spaces kept", input: "a b c", want: "a b c"},
		{name: "newlines and tabs collapsed", input: "  I beg\n\tto move  ", want: "I beg to move"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseWhitespace(tt.input); got != tt.want {
				t.Errorf("CollapseWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
