package krb5

import (
	"fmt"
	"strings"

	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/iana/patype"
	"github.com/jcmturner/gokrb5/v8/types"
)

// SaltCandidate is one of the salt strings the keytab synchronizer probes before
// committing to a single salt for the whole session (spec.md §4.6).
type SaltCandidate struct {
	Name string
	Salt string
}

// CandidateSalts builds the three salts spec.md §4.6 names, in the order they
// should be tried: the standard Kerberos principal salt, the Windows-2003
// computer-account salt, and the null salt.
func CandidateSalts(principal Principal, computerName string) []SaltCandidate {
	return []SaltCandidate{
		{Name: "standard", Salt: standardSalt(principal)},
		{Name: "windows-2003-computer", Salt: windows2003ComputerSalt(principal.Realm, computerName)},
		{Name: "null", Salt: ""},
	}
}

// standardSalt implements RFC 4120's default salt: the realm followed by each name
// component, concatenated with no separators.
func standardSalt(p Principal) string {
	var b strings.Builder
	b.WriteString(p.Realm)
	for _, c := range p.Components() {
		b.WriteString(c)
	}
	return b.String()
}

// windows2003ComputerSalt reproduces the salt Windows 2000/2003 domain controllers
// derive for computer accounts, which does not follow the RFC 4120 default: the
// upper-cased realm, the literal "host", the lower-cased computer name (without a
// trailing "$"), a ".", and the lower-cased realm rendered as a DNS domain name.
//
// This is documented, widely-implemented (adcli, Samba) behavior; treat it with the
// same verify-before-shipping caution as ResetPassword.
func windows2003ComputerSalt(realm, computerName string) string {
	name := strings.ToLower(strings.TrimSuffix(computerName, "$"))
	domain := strings.ToLower(realm)
	return strings.ToUpper(realm) + "host" + name + "." + domain
}

// AuthProbe attempts an authentication with the given salt and reports whether it
// succeeded. The enrollment core supplies the real AS-REQ-based implementation;
// this package only defines the shape, so salt discovery is testable without a
// live KDC.
type AuthProbe func(candidate SaltCandidate) (bool, error)

// DiscoverSalt tries each candidate via probe in order and returns the first one
// that succeeds. It returns an error if every candidate fails, mapped by the
// caller to a directory error per spec.md §4.6.
func DiscoverSalt(candidates []SaltCandidate, probe AuthProbe) (SaltCandidate, error) {
	for _, c := range candidates {
		ok, err := probe(c)
		if err != nil {
			continue
		}
		if ok {
			return c, nil
		}
	}
	return SaltCandidate{}, fmt.Errorf("krb5: no candidate salt authenticated")
}

// DeriveKey derives the encryption key for password under an explicit salt,
// bypassing gokrb5's principal-default salt by injecting a PA-PW-SALT PA-DATA
// entry — the same mechanism a KDC uses to tell a client which salt to use,
// repurposed here so the caller can force an arbitrary candidate through.
func DeriveKey(password, salt string, principal Principal, encTypeID int32) (types.EncryptionKey, error) {
	pas := types.PADataSequence{
		{PADataType: patype.PA_PW_SALT, PADataValue: []byte(salt)},
	}
	return crypto.GetKeyFromPassword(password, principal.Realm, principal.Name, encTypeID, pas)
}
