package enroll

import (
	"strings"
	"sync"

	"github.com/adjoin/adjoin/internal/connection"
	"github.com/adjoin/adjoin/internal/keytab"
	"github.com/adjoin/adjoin/internal/krb5"
)

// defaultServiceNames is the service-name list ensure_service_names falls back to
// when the caller never set one, per spec.md §4.1.
var defaultServiceNames = []string{"HOST", "RestrictedKrbHost"}

// Session is the EnrollmentSession spec.md §3 describes: the connection
// collaborator, caller-supplied configuration, and the state each pipeline stage
// derives along the way.
type Session struct {
	mu       sync.Mutex
	refCount int

	conn connection.Connection

	hostFQDN         string
	hostFQDNExplicit bool // true once the caller has taken any position — an explicit value, or explicit suppression of auto-derivation

	computerName         string
	computerNameExplicit bool
	computerSAM          string

	computerPassword         string
	computerPasswordExplicit bool
	resetPassword            bool

	computerPrincipal krb5.Principal

	preferredOU          string
	preferredOUValidated bool

	computerContainer string
	computerDN        string

	computerAttributes map[string][]string

	serviceNames              []string
	servicePrincipals         []krb5.Principal
	servicePrincipalsExplicit bool

	kvno uint32

	keytabPath       string
	keytabNameIsKrb5 bool
	kt               *keytab.Keytab
	keytabPrincipals []krb5.Principal

	keytabEncTypes         []krb5.EncType
	keytabEncTypesExplicit bool

	whichSalt *krb5.SaltCandidate

	lastErr string
}

// New creates a Session bound to conn with a reference count of one.
func New(conn connection.Connection) *Session {
	s := &Session{conn: conn, refCount: 1}
	s.ClearState()
	return s
}

// Retain increments the session's reference count.
func (s *Session) Retain() {
	s.mu.Lock()
	s.refCount++
	s.mu.Unlock()
}

// Release decrements the session's reference count and tears it down once it
// reaches zero: the password is zeroized (unless explicit), derived principals
// and attribute caches are dropped, and the keytab handle is released.
func (s *Session) Release() {
	s.mu.Lock()
	s.refCount--
	remaining := s.refCount
	s.mu.Unlock()
	if remaining <= 0 {
		s.teardown()
	}
}

func (s *Session) teardown() {
	s.scrubPassword()
	s.computerAttributes = nil
	s.keytabPrincipals = nil
	s.kt = nil
}

func (s *Session) scrubPassword() {
	if s.computerPasswordExplicit {
		return
	}
	s.computerPassword = ""
}

// ClearState drops all derived state while preserving caller-provided explicit
// values, per spec.md §3's lifecycle note. It is invoked at the entry of every
// enrollment run (Prepare and Join).
func (s *Session) ClearState() {
	if !s.computerNameExplicit {
		s.computerName = ""
	}
	s.computerSAM = ""
	s.scrubPassword()
	s.computerPrincipal = krb5.Principal{}
	s.preferredOUValidated = false
	s.computerContainer = ""
	s.computerDN = ""
	s.computerAttributes = nil
	if !s.servicePrincipalsExplicit {
		s.servicePrincipals = nil
	}
	s.keytabPrincipals = nil
	s.kvno = 0
	s.whichSalt = nil
	s.lastErr = ""
}

// Connection returns the bound external collaborator.
func (s *Session) Connection() connection.Connection { return s.conn }

// HostFQDN returns the target host's fully qualified name.
func (s *Session) HostFQDN() string { return s.hostFQDN }

// SetHostFQDN sets an explicit host FQDN, overriding auto-derivation.
func (s *Session) SetHostFQDN(fqdn string) {
	s.hostFQDN = fqdn
	s.hostFQDNExplicit = true
}

// SuppressHostFQDN marks the FQDN as explicitly left absent: ensure_host_fqdn
// will not attempt to derive it from the connection collaborator.
func (s *Session) SuppressHostFQDN() {
	s.hostFQDN = ""
	s.hostFQDNExplicit = true
}

// ComputerName returns the short, upper-cased computer name.
func (s *Session) ComputerName() string { return s.computerName }

// SetComputerName sets an explicit computer name, upper-cased per spec.md §3's
// invariant.
func (s *Session) SetComputerName(name string) {
	s.computerName = strings.ToUpper(name)
	s.computerNameExplicit = true
}

// ComputerSAM returns the derived sAMAccountName ("<NAME>$").
func (s *Session) ComputerSAM() string { return s.computerSAM }

// ComputerPassword returns the current cleartext password material.
func (s *Session) ComputerPassword() string { return s.computerPassword }

// SetComputerPassword sets an explicit password, which survives ClearState and is
// never scrubbed on teardown.
func (s *Session) SetComputerPassword(password string) {
	s.computerPassword = password
	s.computerPasswordExplicit = true
}

// SetResetPassword selects the deterministic reset-password derivation in place
// of random password generation.
func (s *Session) SetResetPassword(reset bool) { s.resetPassword = reset }

// ComputerPrincipal returns the Kerberos principal parsed from computer_sam.
func (s *Session) ComputerPrincipal() krb5.Principal { return s.computerPrincipal }

// PreferredOU returns the caller-provided or discovered OU DN.
func (s *Session) PreferredOU() string { return s.preferredOU }

// SetPreferredOU sets the preferred OU DN explicitly, clearing the validated flag
// per spec.md §3's invariant ("preferred_ou_validated is cleared whenever
// preferred_ou is assigned").
func (s *Session) SetPreferredOU(ou string) {
	s.preferredOU = ou
	s.preferredOUValidated = false
}

// ComputerContainer returns the DN of the container holding the computer object.
func (s *Session) ComputerContainer() string { return s.computerContainer }

// ComputerDN returns the final DN the computer object will be created or
// reconciled at.
func (s *Session) ComputerDN() string { return s.computerDN }

// ComputerAttributes returns the most recently fetched directory entry, used for
// diffing in the reconciler and attribute writer.
func (s *Session) ComputerAttributes() map[string][]string { return s.computerAttributes }

// ServiceNames returns the configured service-name list.
func (s *Session) ServiceNames() []string { return s.serviceNames }

// SetServiceNames sets an explicit service-name list, overriding the
// ["HOST", "RestrictedKrbHost"] default.
func (s *Session) SetServiceNames(names []string) {
	s.serviceNames = append([]string(nil), names...)
}

// ServicePrincipals returns the derived (or explicitly set) service principals.
func (s *Session) ServicePrincipals() []krb5.Principal { return s.servicePrincipals }

// SetServicePrincipals overrides automatic derivation with an explicit principal
// list.
func (s *Session) SetServicePrincipals(principals []krb5.Principal) {
	s.servicePrincipals = append([]krb5.Principal(nil), principals...)
	s.servicePrincipalsExplicit = true
}

// KVNO returns the current key version number.
func (s *Session) KVNO() uint32 { return s.kvno }

// KeytabPrincipals returns the principals the keytab synchronizer will write,
// computer principal first.
func (s *Session) KeytabPrincipals() []krb5.Principal { return s.keytabPrincipals }

// KeytabPath returns the destination keytab's path.
func (s *Session) KeytabPath() string { return s.keytabPath }

// SetKeytabPath sets an explicit keytab destination path.
func (s *Session) SetKeytabPath(path string) {
	s.keytabPath = path
	s.keytabNameIsKrb5 = false
}

// KeytabEncTypes returns the desired enctype list.
func (s *Session) KeytabEncTypes() []krb5.EncType { return s.keytabEncTypes }

// SetKeytabEncTypeNames sets an explicit enctype list by name, overriding the
// built-in default order (AES256, AES128, RC4, DES-MD5, DES-CRC). DES3 is not
// part of the default list.
func (s *Session) SetKeytabEncTypeNames(names []string) {
	s.keytabEncTypes = krb5.ParseEncTypeNames(names)
	s.keytabEncTypesExplicit = true
}

// LastError returns the human-readable message from the most recently failed
// operation.
func (s *Session) LastError() string { return s.lastErr }

func (s *Session) setLastError(err error) {
	if err == nil {
		s.lastErr = ""
		return
	}
	s.lastErr = err.Error()
}

func (s *Session) clearLastError() {
	s.lastErr = ""
	s.conn.ClearLastError()
}
