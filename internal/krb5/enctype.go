package krb5

import (
	"strconv"
	"strings"

	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
)

// EncType names one of the enctypes the enrollment client negotiates, paired with
// the msDS-supportedEncryptionTypes bit Active Directory uses to record it.
type EncType struct {
	Name   string
	ID     int32
	ADBit  uint32
}

// DefaultEncTypes is the built-in enctype list used when the caller did not set one
// explicitly and the directory has none recorded yet (spec.md §4.5). AD's bit
// assignments for msDS-supportedEncryptionTypes, strongest first.
var DefaultEncTypes = []EncType{
	{Name: "aes256-cts-hmac-sha1-96", ID: etypeID.AES256_CTS_HMAC_SHA1_96, ADBit: 0x10},
	{Name: "aes128-cts-hmac-sha1-96", ID: etypeID.AES128_CTS_HMAC_SHA1_96, ADBit: 0x8},
	{Name: "rc4-hmac", ID: etypeID.RC4_HMAC, ADBit: 0x4},
	{Name: "des-cbc-md5", ID: etypeID.DES_CBC_MD5, ADBit: 0x2},
	{Name: "des-cbc-crc", ID: etypeID.DES_CBC_CRC, ADBit: 0x1},
}

// encTypesByName indexes DefaultEncTypes for lookup by name. des3-cbc-sha1 has no
// AD bit of its own in msDS-supportedEncryptionTypes and is accepted on input but
// never adopted from the directory or offered as a default.
var encTypesByName = func() map[string]EncType {
	m := make(map[string]EncType, len(DefaultEncTypes)+1)
	for _, e := range DefaultEncTypes {
		m[e.Name] = e
	}
	m["des3-cbc-sha1"] = EncType{Name: "des3-cbc-sha1", ID: etypeID.DES3_CBC_SHA1, ADBit: 0}
	return m
}()

// ParseEncTypeNames resolves a list of enctype names to EncType values, skipping
// (not erroring on) unrecognized names — callers warn-and-keep-default on bad
// directory-supplied values per spec.md §4.5.
func ParseEncTypeNames(names []string) []EncType {
	out := make([]EncType, 0, len(names))
	for _, n := range names {
		if e, ok := encTypesByName[strings.ToLower(strings.TrimSpace(n))]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Mask ORs together the AD bits for a set of enctypes.
func Mask(encTypes []EncType) uint32 {
	var mask uint32
	for _, e := range encTypes {
		mask |= e.ADBit
	}
	return mask
}

// MaskString formats a mask as a decimal bitfield string, the form
// msDS-supportedEncryptionTypes is stored and compared in.
func MaskString(mask uint32) string {
	return strconv.FormatUint(uint64(mask), 10)
}

// EncTypesFromMaskString parses a decimal msDS-supportedEncryptionTypes value back
// into the EncTypes it names. A malformed value yields (nil, false); the caller
// warns and keeps the built-in default, per spec.md §4.5.
func EncTypesFromMaskString(s string) ([]EncType, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return nil, false
	}
	mask := uint32(v)

	var out []EncType
	for _, e := range DefaultEncTypes {
		if mask&e.ADBit != 0 {
			out = append(out, e)
		}
	}
	return out, true
}
