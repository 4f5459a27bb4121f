// Package connection implements the LDAP/Kerberos collaborator spec.md §6
// describes as external to the enrollment core: a bound directory handle, the
// discovered naming context and domain realm, and the two Kerberos credential
// paths the credential setter and keytab synchronizer stages need. It is built on
// internal/ldap (the teacher's connection pooling and GSSAPI bind machinery) and
// internal/krb5 (principal, salt, and change-password logic), and is the only
// package internal/enroll imports from this pair.
package connection
