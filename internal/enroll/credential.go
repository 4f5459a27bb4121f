package enroll

import (
	"context"

	"github.com/adjoin/adjoin/internal/connection"
	"github.com/adjoin/adjoin/internal/krb5"
)

// setCredential implements spec.md §4.4's Credential Setter: an admin (user
// account) login resets the computer's password via the ccache-based kpasswd
// path (administrative reset, no knowledge of the old password required); a
// computer-account login changes its own password via the kadmin/changepw
// service-ticket path. Both collapse to the same connection.ChangePassword call,
// differing only in whether a target principal is supplied.
func (s *Session) setCredential(ctx context.Context) *Error {
	switch s.conn.LoginType() {
	case connection.LoginTypeUserAccount:
		target := s.computerPrincipal
		result, err := s.conn.ChangePassword(ctx, s.computerPassword, &target)
		return s.interpretChangePassword(result, err)
	case connection.LoginTypeComputerAccount:
		result, err := s.conn.ChangePassword(ctx, s.computerPassword, nil)
		return s.interpretChangePassword(result, err)
	default:
		return unexpectedf(nil, "connection reports unknown login type %v", s.conn.LoginType())
	}
}

// interpretChangePassword implements spec.md §4.4's shared error mapping:
// Kerberos library failure is *directory*; a non-zero protocol result
// (including the server's human-readable message) is *credentials*.
func (s *Session) interpretChangePassword(result krb5.Result, err error) *Error {
	if err != nil {
		return directoryf(err, "kpasswd exchange for %s", s.computerPrincipal)
	}
	if !result.Success() {
		return credentialsf(nil, "kpasswd rejected password change for %s: %s", s.computerPrincipal, result.Message)
	}
	return nil
}
