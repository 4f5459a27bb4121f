package krb5

import "strings"

// resetPasswordLength is the fixed length of the legacy LanMan-style computer
// password Active Directory and Samba both still accept for reset_password joins.
const resetPasswordLength = 14

// ResetPassword derives the deterministic "reset password" for a computer account
// from its name, matching the convention adcli's --reset-password and Samba's
// net ads join --no-dns-updates use: the lower-cased NetBIOS name, padded or
// truncated to 14 bytes with the name repeated to fill any remainder.
//
// This derivation is documented behavior, not independently verified against a
// live domain; confirm it before relying on it for a production join.
func ResetPassword(computerName string) string {
	lower := strings.ToLower(computerName)
	if lower == "" {
		return strings.Repeat("x", resetPasswordLength)
	}

	var b strings.Builder
	for b.Len() < resetPasswordLength {
		b.WriteString(lower)
	}
	return b.String()[:resetPasswordLength]
}
