package ldap

import (
	"fmt"

	"github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
)

// SIDHandler provides SID operations for Active Directory.
// Active Directory stores SIDs in binary format that needs to be converted to human-readable strings.
type SIDHandler struct{}

// NewSIDHandler creates a new SID handler instance.
func NewSIDHandler() *SIDHandler {
	return &SIDHandler{}
}

// ConvertBinarySIDToString converts a binary SID to its string representation.
// Active Directory stores objectSid as binary data that needs conversion to S-1-5-21-... format.
func (s *SIDHandler) ConvertBinarySIDToString(binarySID []byte) (string, error) {
	if len(binarySID) == 0 {
		return "", fmt.Errorf("binary SID cannot be empty")
	}

	// Use go-objectsid to decode the binary SID
	sid := objectsid.Decode(binarySID)

	// Return the string representation
	return sid.String(), nil
}

// ExtractSID extracts the objectSid from an LDAP entry and returns it as a string.
func (s *SIDHandler) ExtractSID(entry *ldap.Entry) (string, error) {
	if entry == nil {
		return "", fmt.Errorf("LDAP entry cannot be nil")
	}

	// Get the objectSid attribute as raw bytes
	sidBytes := entry.GetRawAttributeValue("objectSid")
	if len(sidBytes) == 0 {
		return "", fmt.Errorf("objectSid attribute not found in entry")
	}

	return s.ConvertBinarySIDToString(sidBytes)
}

// ExtractSIDSafe extracts the objectSid from an LDAP entry, returning empty string if not found.
// This is useful when SID might not be present and you want to handle it gracefully.
// This function handles both binary SID data (from real LDAP) and string SID data (for testing).
func (s *SIDHandler) ExtractSIDSafe(entry *ldap.Entry) string {
	if entry == nil {
		return ""
	}

	// First try to get raw binary SID data (real LDAP)
	sidBytes := entry.GetRawAttributeValue("objectSid")
	if len(sidBytes) > 0 {
		sid, err := s.ConvertBinarySIDToString(sidBytes)
		if err != nil {
			return ""
		}
		return sid
	}

	// Fallback to string SID value (for testing)
	sidString := entry.GetAttributeValue("objectSid")
	if sidString != "" && s.ValidateSIDString(sidString) == nil {
		return sidString
	}

	return ""
}

// ValidateSIDString validates that a string is a properly formatted SID.
func (s *SIDHandler) ValidateSIDString(sidString string) error {
	if sidString == "" {
		return fmt.Errorf("SID string cannot be empty")
	}

	// Basic SID format validation - should start with S- and contain only valid characters
	if len(sidString) < 5 || sidString[:2] != "S-" {
		return fmt.Errorf("invalid SID format: must start with 'S-'")
	}

	// Additional validation could be added here if needed
	return nil
}
