/*
Package ldap provides the Active Directory LDAP transport layer for the enrollment
client: connection discovery, pooling, authenticated binds, and the basic directory
operations (search, add, modify, compare) the enrollment core composes into
account-location discovery and computer-object reconciliation.

# Architecture Overview

  - Client: connection pooling, health checks, and the basic LDAP verbs
  - ConnectionPool/PooledConnection: DNS SRV-discovered, health-checked connection reuse
  - Kerberos helpers: GSSAPI bind and SPN construction for authenticated LDAP sessions
  - GUIDHandler: Active Directory's mixed-endian objectGUID encode/decode
  - SID decoding: objectSid parsing for diagnostics

# Connection Management

The Client interface provides connection pooling with automatic failover:

  - SRV-based domain controller discovery
  - Connection pooling with health checks
  - Automatic retry with exponential backoff
  - Support for simple-bind and Kerberos/GSSAPI authentication

# Error Handling

The package provides structured error handling through LDAPError:

  - Categorized errors (connection, authentication, validation, etc.)
  - Retryable error classification
  - Detailed context preservation
  - Server message integration

# Thread Safety

The Client and its connection pool are safe for concurrent use; a single pool is
shared across whatever concurrent enrollment operations run in the same process.

# Example Usage

	config := &ldap.ConnectionConfig{
		Domain:        "example.com",
		KerberosRealm: "EXAMPLE.COM",
	}
	client, err := ldap.NewClient(config)
	if err != nil {
		return err
	}
	defer client.Close()

	ok, err := client.Compare(ctx, "OU=Workstations,DC=example,DC=com", "objectClass", "organizationalUnit")
	if err != nil {
		return err
	}
*/
package ldap
