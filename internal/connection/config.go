package connection

import (
	"time"

	"github.com/adjoin/adjoin/internal/ldap"
)

// Config describes how to establish a Connection: which domain/directory to reach
// and which of the two credential paths (user or computer) to authenticate with.
type Config struct {
	// LDAP carries the directory-facing settings: domain, direct URLs, TLS, pool
	// sizing, retry policy. Authentication fields (Username/Password/KerberosRealm/
	// KerberosKeytab/KerberosCCache/KerberosSPN) select both the LDAP GSSAPI bind
	// credential and, via LoginType, the kpasswd credential path.
	LDAP ldap.ConnectionConfig

	// LoginType selects which credential path Connect authenticates with. When
	// unset (zero value LoginTypeUserAccount) a keytab-only config with no
	// Username is treated as a computer-account login instead; see resolveLoginType.
	LoginType LoginType

	// KpasswdTimeout bounds each kpasswd UDP round trip.
	KpasswdTimeout time.Duration
}

// resolveLoginType applies the defaulting rule: an explicit LoginType always wins;
// otherwise a config authenticating via keytab with no username set is assumed to
// be the computer's own identity (the conventional shape of a domain-joined
// computer's credentials), and everything else is a user/admin login.
func (c *Config) resolveLoginType() LoginType {
	if c.LoginType == LoginTypeComputerAccount {
		return LoginTypeComputerAccount
	}
	if c.LDAP.Username == "" && c.LDAP.KerberosKeytab != "" {
		return LoginTypeComputerAccount
	}
	return LoginTypeUserAccount
}
