package ldap

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// ValidateDNSyntax validates that a string is a properly formatted Distinguished Name.
func ValidateDNSyntax(dn string) error {
	if dn == "" {
		return fmt.Errorf("DN cannot be empty")
	}

	_, err := ldap.ParseDN(dn)
	if err != nil {
		return fmt.Errorf("invalid DN syntax: %w", err)
	}

	return nil
}
