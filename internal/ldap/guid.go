package ldap

import (
	"encoding/hex"
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// GUIDHandler provides GUID operations for Active Directory.
// Active Directory stores GUIDs in a mixed-endian format that differs from standard UUID byte ordering.
type GUIDHandler struct{}

// NewGUIDHandler creates a new GUID handler instance.
func NewGUIDHandler() *GUIDHandler {
	return &GUIDHandler{}
}

// GUIDBytesLength is the length of a GUID in its raw binary form.
const GUIDBytesLength = 16

// GUIDBytesToString converts Active Directory GUID bytes to standard string format.
func (g *GUIDHandler) GUIDBytesToString(guidBytes []byte) (string, error) {
	if len(guidBytes) != GUIDBytesLength {
		return "", fmt.Errorf("invalid GUID byte length: expected %d, got %d", GUIDBytesLength, len(guidBytes))
	}

	// Convert from Active Directory mixed-endian format to standard format
	standardBytes := make([]byte, GUIDBytesLength)

	// Data1 (bytes 0-3): reverse byte order (from little-endian)
	standardBytes[0] = guidBytes[3]
	standardBytes[1] = guidBytes[2]
	standardBytes[2] = guidBytes[1]
	standardBytes[3] = guidBytes[0]

	// Data2 (bytes 4-5): reverse byte order (from little-endian)
	standardBytes[4] = guidBytes[5]
	standardBytes[5] = guidBytes[4]

	// Data3 (bytes 6-7): reverse byte order (from little-endian)
	standardBytes[6] = guidBytes[7]
	standardBytes[7] = guidBytes[6]

	// Data4 (bytes 8-15): keep original order (big-endian)
	copy(standardBytes[8:], guidBytes[8:])

	// Convert to hex string and format
	hexString := hex.EncodeToString(standardBytes)

	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hexString[0:8],
		hexString[8:12],
		hexString[12:16],
		hexString[16:20],
		hexString[20:32],
	), nil
}

// ExtractGUID extracts the objectGUID from an LDAP entry and returns it as a string.
func (g *GUIDHandler) ExtractGUID(entry *ldap.Entry) (string, error) {
	if entry == nil {
		return "", fmt.Errorf("LDAP entry cannot be nil")
	}

	// Get the objectGUID attribute
	guidAttr := entry.GetRawAttributeValue("objectGUID")
	if len(guidAttr) == 0 {
		return "", fmt.Errorf("objectGUID attribute not found in entry")
	}

	if len(guidAttr) != GUIDBytesLength {
		return "", fmt.Errorf("invalid objectGUID length: expected %d bytes, got %d", GUIDBytesLength, len(guidAttr))
	}

	return g.GUIDBytesToString(guidAttr)
}

// ExtractGUIDSafe extracts the objectGUID from an LDAP entry, returning empty string if not found.
// This is useful when GUID might not be present and you want to handle it gracefully.
func (g *GUIDHandler) ExtractGUIDSafe(entry *ldap.Entry) string {
	guid, err := g.ExtractGUID(entry)
	if err != nil {
		return ""
	}
	return guid
}
