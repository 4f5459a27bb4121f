package ldap

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGUIDHandler_GUIDBytesToString(t *testing.T) {
	handler := NewGUIDHandler()

	// AD mixed-endian bytes for GUID: 12345678-1234-1234-1234-123456789012
	adBytes := []byte{
		0x78, 0x56, 0x34, 0x12, // Data1: little-endian
		0x34, 0x12, // Data2: little-endian
		0x34, 0x12, // Data3: little-endian
		0x12, 0x34, 0x12, 0x34, 0x56, 0x78, 0x90, 0x12, // Data4: big-endian
	}

	tests := []struct {
		name     string
		input    []byte
		expected string
		wantErr  bool
	}{
		{
			name:     "valid AD bytes",
			input:    adBytes,
			expected: "12345678-1234-1234-1234-123456789012",
			wantErr:  false,
		},
		{
			name:    "invalid length - too short",
			input:   []byte{0x78, 0x56, 0x34, 0x12},
			wantErr: true,
		},
		{
			name:    "invalid length - too long",
			input:   append(adBytes, 0x00),
			wantErr: true,
		},
		{
			name:    "nil bytes",
			input:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler.GUIDBytesToString(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}
func TestGUIDHandler_ExtractGUID(t *testing.T) {
	handler := NewGUIDHandler()

	// Create mock LDAP entry with objectGUID
	adBytes := []byte{
		0x78, 0x56, 0x34, 0x12, // Data1: little-endian
		0x34, 0x12, // Data2: little-endian
		0x34, 0x12, // Data3: little-endian
		0x12, 0x34, 0x12, 0x34, 0x56, 0x78, 0x90, 0x12, // Data4: big-endian
	}

	tests := []struct {
		name     string
		entry    *ldap.Entry
		expected string
		wantErr  bool
	}{
		{
			name: "valid entry with objectGUID",
			entry: &ldap.Entry{
				Attributes: []*ldap.EntryAttribute{
					{
						Name:       "objectGUID",
						ByteValues: [][]byte{adBytes},
					},
				},
			},
			expected: "12345678-1234-1234-1234-123456789012",
			wantErr:  false,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantErr: true,
		},
		{
			name: "entry without objectGUID",
			entry: &ldap.Entry{
				Attributes: []*ldap.EntryAttribute{
					{
						Name:   "cn",
						Values: []string{"test"},
					},
				},
			},
			wantErr: true,
		},
		{
			name: "entry with empty objectGUID",
			entry: &ldap.Entry{
				Attributes: []*ldap.EntryAttribute{
					{
						Name:       "objectGUID",
						ByteValues: [][]byte{{}},
					},
				},
			},
			wantErr: true,
		},
		{
			name: "entry with invalid objectGUID length",
			entry: &ldap.Entry{
				Attributes: []*ldap.EntryAttribute{
					{
						Name:       "objectGUID",
						ByteValues: [][]byte{{0x12, 0x34}}, // Too short
					},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler.ExtractGUID(tt.entry)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGUIDHandler_ExtractGUIDSafe(t *testing.T) {
	handler := NewGUIDHandler()

	// Create mock LDAP entry with objectGUID
	adBytes := []byte{
		0x78, 0x56, 0x34, 0x12, // Data1: little-endian
		0x34, 0x12, // Data2: little-endian
		0x34, 0x12, // Data3: little-endian
		0x12, 0x34, 0x12, 0x34, 0x56, 0x78, 0x90, 0x12, // Data4: big-endian
	}

	tests := []struct {
		name     string
		entry    *ldap.Entry
		expected string
	}{
		{
			name: "valid entry with objectGUID",
			entry: &ldap.Entry{
				Attributes: []*ldap.EntryAttribute{
					{
						Name:       "objectGUID",
						ByteValues: [][]byte{adBytes},
					},
				},
			},
			expected: "12345678-1234-1234-1234-123456789012",
		},
		{
			name:     "nil entry",
			entry:    nil,
			expected: "",
		},
		{
			name: "entry without objectGUID",
			entry: &ldap.Entry{
				Attributes: []*ldap.EntryAttribute{
					{
						Name:   "cn",
						Values: []string{"test"},
					},
				},
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := handler.ExtractGUIDSafe(tt.entry)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Benchmark tests for performance validation.
func BenchmarkGUIDHandler_GUIDBytesToString(b *testing.B) {
	handler := NewGUIDHandler()
	guidBytes := []byte{
		0x78, 0x56, 0x34, 0x12, 0x34, 0x12, 0x34, 0x12,
		0x12, 0x34, 0x12, 0x34, 0x56, 0x78, 0x90, 0x12,
	}

	for b.Loop() {
		_, err := handler.GUIDBytesToString(guidBytes)
		if err != nil {
			b.Fatal(err)
		}
	}
}
