package enroll

import (
	"fmt"
	"strings"

	"github.com/adjoin/adjoin/internal/krb5"
)

// ensureHostFQDN implements spec.md §4.1's ensure_host_fqdn: if the caller never
// took an explicit position, adopt the FQDN the connection collaborator
// discovered.
func (s *Session) ensureHostFQDN() *Error {
	if s.hostFQDNExplicit {
		return nil
	}
	s.hostFQDN = s.conn.HostFQDN()
	return nil
}

// ensureComputerName implements spec.md §4.1's ensure_computer_name: split
// host_fqdn at the first ".", upper-case the left portion. Fails *config* if
// host_fqdn is missing, dotless, or the dot is first or last.
func (s *Session) ensureComputerName() *Error {
	if s.computerNameExplicit {
		return nil
	}
	if s.hostFQDN == "" {
		return configf("cannot derive computer name: host FQDN is not set")
	}
	dot := strings.IndexByte(s.hostFQDN, '.')
	if dot <= 0 || dot == len(s.hostFQDN)-1 {
		return configf("cannot derive computer name from host FQDN %q: expected a leading label and a domain suffix", s.hostFQDN)
	}
	s.computerName = strings.ToUpper(s.hostFQDN[:dot])
	return nil
}

// ensureComputerSAM implements spec.md §4.1's ensure_computer_sam: format
// "<NAME>$", parse it into a Kerberos principal, and force its realm to the
// domain realm. Any Kerberos parse failure here is *unexpected* — the SAM name
// this function builds is always a single valid name component.
func (s *Session) ensureComputerSAM() *Error {
	s.computerPrincipal = krb5.Principal{}
	s.computerSAM = fmt.Sprintf("%s$", s.computerName)

	principal, err := krb5.ParsePrincipal(s.computerSAM, s.conn.DomainRealm())
	if err != nil {
		return unexpectedf(err, "parse computer principal from SAM %q", s.computerSAM)
	}
	s.computerPrincipal = principal
	return nil
}

// ensureComputerPassword implements spec.md §4.1's ensure_computer_password: an
// explicit password is kept as-is; otherwise the deterministic reset password or
// a freshly generated 120-character random password is produced and stored as
// not-explicit (so it is zeroized on teardown).
func (s *Session) ensureComputerPassword() *Error {
	if s.computerPasswordExplicit {
		return nil
	}
	if s.resetPassword {
		s.computerPassword = krb5.ResetPassword(s.computerName)
		return nil
	}

	password, err := krb5.GeneratePassword()
	if err != nil {
		return unexpectedf(err, "generate computer password")
	}
	s.computerPassword = password
	return nil
}

// ensureServiceNames implements spec.md §4.1's ensure_service_names: default to
// ["HOST", "RestrictedKrbHost"] if unset.
func (s *Session) ensureServiceNames() *Error {
	if s.serviceNames == nil {
		s.serviceNames = append([]string(nil), defaultServiceNames...)
	}
	return nil
}

// ensureServicePrincipals implements spec.md §4.1's ensure_service_principals:
// for each service name, emit SVC/<computer_name> and, if the FQDN is known,
// SVC/<host_fqdn>; build keytab_principals with the computer principal in slot 0
// followed by the service principals, all reparented into the domain realm.
func (s *Session) ensureServicePrincipals() *Error {
	if s.servicePrincipalsExplicit {
		s.keytabPrincipals = append([]krb5.Principal{s.computerPrincipal}, s.servicePrincipals...)
		return nil
	}

	realm := s.conn.DomainRealm()
	var principals []krb5.Principal

	for _, svc := range s.serviceNames {
		p, err := krb5.ParsePrincipal(svc+"/"+s.computerName, realm)
		if err != nil {
			return configf("parse service principal %s/%s: %v", svc, s.computerName, err)
		}
		principals = append(principals, p)

		if s.hostFQDN != "" {
			p, err := krb5.ParsePrincipal(svc+"/"+s.hostFQDN, realm)
			if err != nil {
				return configf("parse service principal %s/%s: %v", svc, s.hostFQDN, err)
			}
			principals = append(principals, p)
		}
	}

	s.servicePrincipals = principals
	s.keytabPrincipals = append([]krb5.Principal{s.computerPrincipal}, principals...)
	return nil
}

// deriveNameAndPassword runs all of spec.md §4.1's stages in order, short-
// circuiting on the first failure (threaded-result style, per spec.md §7).
func (s *Session) deriveNameAndPassword() *Error {
	steps := []func() *Error{
		s.ensureHostFQDN,
		s.ensureComputerName,
		s.ensureComputerSAM,
		s.ensureComputerPassword,
		s.ensureServiceNames,
		s.ensureServicePrincipals,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
