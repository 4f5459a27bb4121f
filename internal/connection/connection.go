// Package connection implements the external collaborator the enrollment core
// consumes purely through interfaces: a bound LDAP handle, a naming context and
// domain realm, and the Kerberos credentials needed to change a computer account's
// password. internal/enroll imports only this package, never internal/ldap or
// internal/krb5 directly, so the core stays agnostic to how the directory and KDC
// are actually reached.
package connection

import (
	"context"
	"sync"

	"github.com/adjoin/adjoin/internal/krb5"
	"github.com/adjoin/adjoin/internal/ldap"
)

// LoginType names which of the two credential paths spec.md §4.4 describes a bound
// Connection was established with.
type LoginType int

const (
	// LoginTypeUserAccount means the connection authenticated as a human/service
	// admin principal; the credential setter uses the ccache-based reset path.
	LoginTypeUserAccount LoginType = iota
	// LoginTypeComputerAccount means the connection authenticated as the computer
	// object's own principal; the credential setter uses the self-change path via
	// a kadmin/changepw service ticket.
	LoginTypeComputerAccount
)

func (t LoginType) String() string {
	switch t {
	case LoginTypeUserAccount:
		return "user_account"
	case LoginTypeComputerAccount:
		return "computer_account"
	default:
		return "unknown"
	}
}

// Connection is the shared handle to the LDAP directory and Kerberos KDC that the
// enrollment core borrows for the duration of each pipeline stage, per spec.md §6.
type Connection interface {
	// HostFQDN is the fully qualified name the connection layer discovered or was
	// given for the directory host it bound to.
	HostFQDN() string
	// NamingContext is the default naming context (base DN) of the bound domain.
	NamingContext() string
	// DomainRealm is the Kerberos realm of the bound domain, upper-cased.
	DomainRealm() string
	// LoginType reports which credential path this connection authenticated with.
	LoginType() LoginType

	// LDAP returns the bound LDAP client for directory operations.
	LDAP() ldap.Client

	// ChangePassword runs the RFC 3244 kpasswd exchange for newPassword. target is
	// nil for a self-change (LoginTypeComputerAccount) and set to the computer
	// principal being enrolled for an admin reset (LoginTypeUserAccount).
	ChangePassword(ctx context.Context, newPassword string, target *krb5.Principal) (krb5.Result, error)

	// ProbeSalt attempts an AS-REQ for principal, authenticating with the key the
	// candidate salt and encryption type derive from password, and reports whether
	// the KDC accepted it. Used by the keytab synchronizer's salt auto-discovery
	// (spec.md §4.6 step 2).
	ProbeSalt(ctx context.Context, principal krb5.Principal, candidate krb5.SaltCandidate, encTypeID int32, password string) (bool, error)

	// LastError returns the human-readable message from the most recent failed
	// operation, cleared at the start of each prepare/join per spec.md §7.
	LastError() string
	// ClearLastError resets the last-error slot.
	ClearLastError()

	// Close releases the LDAP pool and any Kerberos login context.
	Close() error
}

// lastError is embedded by the concrete connection to provide the "last error"
// slot spec.md §7 describes, guarded against concurrent stage execution even
// though the core itself is single-threaded (spec.md §5) — the slot can still be
// read from diagnostics/logging concurrently with a running stage.
type lastError struct {
	mu  sync.Mutex
	msg string
}

func (l *lastError) set(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msg = msg
}

func (l *lastError) LastError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.msg
}

func (l *lastError) ClearLastError() {
	l.set("")
}
