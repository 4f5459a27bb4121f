// Package enroll implements the enrollment orchestrator: the multi-stage
// pipeline that creates or updates a computer account in Active Directory,
// establishes its Kerberos key material, and keeps a local keytab synchronized
// with the directory. It consumes the external LDAP/Kerberos collaborator only
// through internal/connection's interfaces, never internal/ldap or internal/krb5
// directly, so the pipeline logic stays independent of how the directory and KDC
// are actually reached.
package enroll
