package keytab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(kvno uint8) Entry {
	return Entry{
		Principal: []string{"host", "srv01.example.com"},
		Realm:     "EXAMPLE.COM",
		NameType:  1,
		Timestamp: time.Unix(1700000000, 0).UTC(),
		KVNO:      kvno,
		Key: Key{
			EncType:  18, // AES256-CTS-HMAC-SHA1-96
			KeyValue: []byte("0123456789abcdef0123456789abcdef"),
		},
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	kt := New()
	kt.AddEntry(sampleEntry(3))
	kt.AddEntry(sampleEntry(2))

	data, err := kt.Marshal()
	require.NoError(t, err)

	parsed, err := Unmarshal(data)
	require.NoError(t, err)

	require.Len(t, parsed.Entries, 2)
	assert.Equal(t, "host/srv01.example.com@EXAMPLE.COM", parsed.Entries[0].PrincipalString())
	assert.Equal(t, uint8(3), parsed.Entries[0].KVNO)
	assert.Equal(t, int32(18), parsed.Entries[0].Key.EncType)
	assert.Equal(t, sampleEntry(3).Key.KeyValue, parsed.Entries[0].Key.KeyValue)
	assert.Equal(t, uint8(2), parsed.Entries[1].KVNO)
}

func TestUnmarshalRejectsWrongVersion(t *testing.T) {
	_, err := Unmarshal([]byte{0x05, 0x01})
	assert.Error(t, err)
}

func TestPruneKeepsOnlyRequestedKVNO(t *testing.T) {
	kt := New()
	kt.AddEntry(sampleEntry(1))
	kt.AddEntry(sampleEntry(2))
	kt.AddEntry(sampleEntry(3))
	other := sampleEntry(1)
	other.Principal = []string{"ldap", "dc01.example.com"}
	kt.AddEntry(other)

	removed := kt.Prune([]string{"host", "srv01.example.com"}, "EXAMPLE.COM", 3)

	assert.Equal(t, 2, removed)
	require.Len(t, kt.Entries, 2)

	kvnos := map[uint8]bool{}
	for _, e := range kt.Entries {
		kvnos[e.KVNO] = true
	}
	assert.True(t, kvnos[3])
	assert.True(t, kvnos[1]) // the unrelated "ldap" principal entry survives untouched
}
