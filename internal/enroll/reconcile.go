package enroll

import (
	"context"
	"sort"

	"github.com/adjoin/adjoin/internal/ldap"
)

// Well-known LDAP result codes (RFC 4511 §4.1.9) the reconciler maps explicitly,
// per spec.md §4.3's access mapping. Hardcoded rather than imported from
// go-ldap/v3 directly so this package never needs that dependency.
const (
	ldapResultInsufficientAccessRights = 50
	ldapResultObjectClassViolation     = 65
)

// reconcile implements spec.md §4.3's Directory Reconciler: create the computer
// object if it is absent, or selectively modify it if present and overwrite is
// allowed.
func (s *Session) reconcile(ctx context.Context, flags Flags) *Error {
	target := map[string][]string{
		"objectClass":        {"computer"},
		"sAMAccountName":     {s.computerSAM},
		"userAccountControl": {"69632"},
	}

	result, err := s.conn.LDAP().Search(ctx, &ldap.SearchRequest{
		BaseDN:     s.computerDN,
		Scope:      ldap.ScopeBaseObject,
		Filter:     "(objectClass=*)",
		Attributes: attrNames(target),
	})

	if err != nil {
		if isNoSuchObject(err) {
			return s.createComputerObject(ctx, target)
		}
		return directoryf(err, "search for computer object %s", s.computerDN)
	}

	if !flags.Has(AllowOverwrite) {
		return configf("computer object %s already exists and overwrite is not allowed", s.computerDN)
	}
	return s.updateComputerObject(ctx, target, result)
}

// createComputerObject adds the target entry, pruning mods with no values first.
func (s *Session) createComputerObject(ctx context.Context, target map[string][]string) *Error {
	attrs := pruneEmpty(target)

	err := s.conn.LDAP().Add(ctx, &ldap.AddRequest{
		DN:         s.computerDN,
		Attributes: attrs,
	})
	if err == nil {
		return nil
	}

	code := ldap.NewLDAPError("add", err).GetLDAPCode()
	if code == ldapResultInsufficientAccessRights || code == ldapResultObjectClassViolation {
		return credentialsf(err, "create computer object %s", s.computerDN)
	}
	return directoryf(err, "create computer object %s", s.computerDN)
}

// updateComputerObject retains only the mods whose value-set differs from the
// current entry and issues a single REPLACE modify covering them. If every mod
// already matches, it succeeds silently.
func (s *Session) updateComputerObject(ctx context.Context, target map[string][]string, current *ldap.SearchResult) *Error {
	replace := make(map[string][]string)

	var currentValues func(attr string) []string
	if len(current.Entries) > 0 {
		entry := current.Entries[0]
		currentValues = entry.GetAttributeValues
	} else {
		currentValues = func(string) []string { return nil }
	}

	for attr, wanted := range target {
		if !sameValueSet(wanted, currentValues(attr)) {
			replace[attr] = wanted
		}
	}

	if len(replace) == 0 {
		return nil
	}

	err := s.conn.LDAP().Modify(ctx, &ldap.ModifyRequest{
		DN:                s.computerDN,
		ReplaceAttributes: replace,
	})
	if err == nil {
		return nil
	}

	code := ldap.NewLDAPError("modify", err).GetLDAPCode()
	if code == ldapResultInsufficientAccessRights {
		return credentialsf(err, "update computer object %s", s.computerDN)
	}
	return directoryf(err, "update computer object %s", s.computerDN)
}

func isNoSuchObject(err error) bool {
	return ldap.NewLDAPError("search", err).GetCategory() == ldap.ErrorCategoryNotFound
}

func attrNames(m map[string][]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func pruneEmpty(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		if len(v) > 0 {
			out[k] = v
		}
	}
	return out
}

// sameValueSet compares two attribute value lists as sets, per spec.md §4.3's
// "set-equality check".
func sameValueSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
	}
	for _, count := range seen {
		if count != 0 {
			return false
		}
	}
	return true
}
