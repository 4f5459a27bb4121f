package ldap

import (
	"testing"
)

func TestEscapeDNValue(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "simple value no escaping needed",
			input:    "JohnDoe",
			expected: "JohnDoe",
		},
		{
			name:     "value with space in middle",
			input:    "John Doe",
			expected: "John Doe",
		},
		{
			name:     "comma in value",
			input:    "Doe, John",
			expected: "Doe\\, John",
		},
		{
			name:     "plus sign",
			input:    "CN=John+SN=Doe",
			expected: "CN=John\\+SN=Doe",
		},
		{
			name:     "double quote",
			input:    "John \"Doe\"",
			expected: "John \\\"Doe\\\"",
		},
		{
			name:     "backslash",
			input:    "John\\Doe",
			expected: "John\\\\Doe",
		},
		{
			name:     "angle brackets",
			input:    "John<>Doe",
			expected: "John\\<\\>Doe",
		},
		{
			name:     "semicolon",
			input:    "John;Doe",
			expected: "John\\;Doe",
		},
		{
			name:     "leading space",
			input:    " John",
			expected: "\\ John",
		},
		{
			name:     "trailing space",
			input:    "John ",
			expected: "John\\ ",
		},
		{
			name:     "leading and trailing spaces",
			input:    " John ",
			expected: "\\ John\\ ",
		},
		{
			name:     "leading hash",
			input:    "#123",
			expected: "\\#123",
		},
		{
			name:     "hash in middle",
			input:    "John#123",
			expected: "John#123",
		},
		{
			name:     "multiple special characters",
			input:    "Doe, John <admin>",
			expected: "Doe\\, John \\<admin\\>",
		},
		{
			name:     "all special characters",
			input:    ",+\"\\<>;",
			expected: "\\,\\+\\\"\\\\\\<\\>\\;",
		},
		{
			name:     "real world example - name with comma",
			input:    "Smith, John",
			expected: "Smith\\, John",
		},
		{
			name:     "real world example - name with quotes",
			input:    "John \"Johnny\" Doe",
			expected: "John \\\"Johnny\\\" Doe",
		},
		{
			name:     "real world example - complex name",
			input:    "Smith, John <john@example.com>",
			expected: "Smith\\, John \\<john@example.com\\>",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := EscapeDNValue(tc.input)
			if result != tc.expected {
				t.Errorf("EscapeDNValue(%q) = %q, expected %q", tc.input, result, tc.expected)
			}
		})
	}
}

// Benchmark tests.
func BenchmarkEscapeDNValue_NoEscaping(b *testing.B) {
	value := "JohnDoe"
	for b.Loop() {
		_ = EscapeDNValue(value)
	}
}

func BenchmarkEscapeDNValue_WithEscaping(b *testing.B) {
	value := "Doe, John <john@example.com>"
	for b.Loop() {
		_ = EscapeDNValue(value)
	}
}
