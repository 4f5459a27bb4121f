// Package krb5 implements the Kerberos-facing pieces of the enrollment client:
// principal construction, password generation, salt auto-discovery, the RFC 3244
// change-password protocol, and enctype negotiation. It is built on
// jcmturner/gokrb5/v8, the same stack the teacher uses for its GSSAPI LDAP bind.
package krb5

import (
	"fmt"
	"strings"

	"github.com/jcmturner/gokrb5/v8/types"
)

// Principal is a Kerberos principal name together with the realm it belongs to.
// Every principal this module constructs — the computer principal, every service
// principal — is reparented into the domain realm it discovers, regardless of
// whatever realm (if any) the caller's input string carried; that normalization is
// total and applied in exactly one place, ParsePrincipal, so it cannot be bypassed
// by a code path that handles one kind of principal differently from another.
type Principal struct {
	Name  types.PrincipalName
	Realm string
}

// ParsePrincipal splits "primary/instance@REALM" (or "primary/instance", or bare
// "primary") into its slash-separated name components and forces the realm to
// domainRealm, discarding whatever realm (if any) was present in raw.
func ParsePrincipal(raw, domainRealm string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, fmt.Errorf("krb5: empty principal")
	}

	name := raw
	if at := strings.LastIndex(raw, "@"); at != -1 {
		name = raw[:at]
	}
	if name == "" {
		return Principal{}, fmt.Errorf("krb5: principal %q has no name component", raw)
	}

	components := strings.Split(name, "/")
	for _, c := range components {
		if c == "" {
			return Principal{}, fmt.Errorf("krb5: principal %q has an empty name component", raw)
		}
	}

	return Principal{
		Name:  types.NewPrincipalName(types.KRB_NT_PRINCIPAL, strings.Join(components, "/")),
		Realm: domainRealm,
	}, nil
}

// HostPrincipal builds the implicit host/<fqdn> principal every enrolled computer
// account gets, regardless of any caller-supplied service names.
func HostPrincipal(hostFQDN, domainRealm string) Principal {
	p, _ := ParsePrincipal("host/"+hostFQDN, domainRealm)
	return p
}

// ServicePrincipals builds one principal per (serviceName, hostFQDN) pair for the
// caller's additional service names, on top of the implicit host principal.
func ServicePrincipals(serviceNames []string, hostFQDN, domainRealm string) ([]Principal, error) {
	principals := make([]Principal, 0, len(serviceNames)+1)
	principals = append(principals, HostPrincipal(hostFQDN, domainRealm))

	for _, svc := range serviceNames {
		svc = strings.TrimSpace(svc)
		if svc == "" {
			continue
		}
		p, err := ParsePrincipal(svc+"/"+hostFQDN, domainRealm)
		if err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}

	return principals, nil
}

// String renders the principal in canonical "primary/instance@REALM" form.
func (p Principal) String() string {
	return strings.Join(p.Name.NameString, "/") + "@" + p.Realm
}

// Components returns the slash-separated name components, excluding the realm.
func (p Principal) Components() []string {
	return p.Name.NameString
}
