package ldap

import (
	"strings"
)

// EscapeDNValue escapes special characters in a DN attribute value according to RFC 4514.
//
// RFC 4514 defines the following escaping rules for DN attribute values:
// - Special characters that must be escaped: , + " \ < > ;
// - Leading # must be escaped
// - Leading and trailing spaces must be escaped
// - NULL bytes must be escaped as \00
//
// Examples:
//   - "John Doe" → "John Doe" (no change)
//   - "Doe, John" → "Doe\, John" (comma escaped)
//   - " John " → "\ John\ " (leading/trailing spaces escaped)
//   - "#123" → "\#123" (leading # escaped)
//   - "John<>Doe" → "John\<\>Doe" (angle brackets escaped)
func EscapeDNValue(value string) string {
	if value == "" {
		return value
	}

	var result strings.Builder
	result.Grow(len(value) + 10) // Pre-allocate with buffer for escape characters

	for i, r := range value {
		switch r {
		case ',', '+', '"', '\\', '<', '>', ';':
			// Special characters that must always be escaped
			result.WriteRune('\\')
			result.WriteRune(r)
		case '#':
			// Leading # must be escaped
			if i == 0 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case ' ':
			// Leading and trailing spaces must be escaped
			if i == 0 || i == len(value)-1 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case 0:
			// NULL byte must be escaped as \00
			result.WriteString("\\00")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}
