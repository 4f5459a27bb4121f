package enroll

import (
	"context"
	"strings"

	"github.com/adjoin/adjoin/internal/ldap"
)

// computersContainerFallbackFilter is the filter lookup_computer_container falls
// back to when wellKnownObjects carries no entry for the default computers
// container (spec.md §4.2).
const computersContainerFallbackFilter = "(&(objectClass=container)(cn=Computers))"

// wellKnownComputersPrefix is the wellKnownObjects value prefix identifying the
// domain's default computer container, per spec.md §6's directory wire surface.
const wellKnownComputersPrefix = "B:32:" + ldap.WellKnownComputersGUID + ":"

// validatePreferredOU implements spec.md §4.2's validate_preferred_ou: the
// naming context itself is always accepted; any other OU is accepted only if an
// LDAP compare confirms objectClass=organizationalUnit.
func (s *Session) validatePreferredOU(ctx context.Context) *Error {
	if s.preferredOUValidated {
		return nil
	}
	if s.preferredOU == "" {
		s.preferredOU = s.conn.NamingContext()
		s.preferredOUValidated = true
		return nil
	}
	if strings.EqualFold(s.preferredOU, s.conn.NamingContext()) {
		s.preferredOUValidated = true
		return nil
	}

	// A caller-supplied OU is checked for RFC 4514 syntax before the round trip
	// to the directory, so a malformed value is reported as Config rather than
	// surfacing as a confusing Compare failure.
	if err := ldap.ValidateDNSyntax(s.preferredOU); err != nil {
		return configf("invalid OU: %s", err)
	}

	ok, err := s.conn.LDAP().Compare(ctx, s.preferredOU, "objectClass", "organizationalUnit")
	if err != nil {
		return directoryf(err, "compare objectClass on preferred OU %s", s.preferredOU)
	}
	if !ok {
		return configf("invalid OU: %s is not an organizationalUnit", s.preferredOU)
	}

	s.preferredOUValidated = true
	return nil
}

// lookupPreferredOU implements spec.md §4.2's lookup_preferred_ou. This search is
// documented as historically quirky — it rarely returns a populated preferredOU
// attribute on any real computer object — so falling back to the naming context
// is the expected common case, not an error path.
func (s *Session) lookupPreferredOU(ctx context.Context) *Error {
	if s.preferredOU != "" {
		return nil
	}

	result, err := s.conn.LDAP().Search(ctx, &ldap.SearchRequest{
		BaseDN:     s.conn.NamingContext(),
		Scope:      ldap.ScopeBaseObject,
		Filter:     "(objectClass=computer)",
		Attributes: []string{"preferredOU"},
	})
	if err != nil {
		return directoryf(err, "lookup preferredOU on naming context %s", s.conn.NamingContext())
	}

	s.preferredOU = s.conn.NamingContext()
	if len(result.Entries) > 0 {
		if ou := result.Entries[0].GetAttributeValue("preferredOU"); ou != "" {
			s.preferredOU = ou
		}
	}
	return nil
}

// lookupComputerContainer implements spec.md §4.2's lookup_computer_container:
// scan the OU's wellKnownObjects for the default-computers-container prefix; on a
// miss, search for a container named "Computers"; on a second miss, warn and fall
// back to the OU itself.
func (s *Session) lookupComputerContainer(ctx context.Context) *Error {
	result, err := s.conn.LDAP().Search(ctx, &ldap.SearchRequest{
		BaseDN:     s.preferredOU,
		Scope:      ldap.ScopeBaseObject,
		Filter:     "(objectClass=*)",
		Attributes: []string{"wellKnownObjects"},
	})
	if err != nil {
		return directoryf(err, "lookup wellKnownObjects on %s", s.preferredOU)
	}

	if len(result.Entries) > 0 {
		for _, value := range result.Entries[0].GetAttributeValues("wellKnownObjects") {
			if strings.HasPrefix(value, wellKnownComputersPrefix) {
				s.computerContainer = strings.TrimPrefix(value, wellKnownComputersPrefix)
				return nil
			}
		}
	}

	fallback, err := s.conn.LDAP().Search(ctx, &ldap.SearchRequest{
		BaseDN: s.preferredOU,
		Scope:  ldap.ScopeWholeSubtree,
		Filter: computersContainerFallbackFilter,
	})
	if err != nil {
		return directoryf(err, "lookup Computers container under %s", s.preferredOU)
	}
	if len(fallback.Entries) > 0 {
		s.computerContainer = fallback.Entries[0].DN
		return nil
	}

	s.computerContainer = s.preferredOU
	return nil
}

// calcComputerAccount implements spec.md §4.2's calc_computer_account. The
// computer name is RFC 4514-escaped before it becomes an RDN value, since it can
// originate from a caller-supplied host_fqdn rather than only from a verified
// directory round trip.
func (s *Session) calcComputerAccount() *Error {
	s.computerDN = "CN=" + ldap.EscapeDNValue(s.computerName) + "," + s.computerContainer
	return nil
}

// resolveLocation runs all of spec.md §4.2's stages in order.
func (s *Session) resolveLocation(ctx context.Context) *Error {
	if err := s.lookupPreferredOU(ctx); err != nil {
		return err
	}
	if err := s.validatePreferredOU(ctx); err != nil {
		return err
	}
	if err := s.lookupComputerContainer(ctx); err != nil {
		return err
	}
	return s.calcComputerAccount()
}
