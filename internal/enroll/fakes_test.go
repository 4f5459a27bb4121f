package enroll

import (
	"context"
	"errors"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/adjoin/adjoin/internal/connection"
	"github.com/adjoin/adjoin/internal/krb5"
	"github.com/adjoin/adjoin/internal/ldap"
)

// fakeLDAPClient is a scriptable stand-in for ldap.Client: each fake method field
// defaults to a success no-op and can be overridden per test.
type fakeLDAPClient struct {
	searchFunc  func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error)
	addFunc     func(ctx context.Context, req *ldap.AddRequest) error
	modifyFunc  func(ctx context.Context, req *ldap.ModifyRequest) error
	compareFunc func(ctx context.Context, dn, attribute, value string) (bool, error)

	adds     []*ldap.AddRequest
	modifies []*ldap.ModifyRequest
}

func (f *fakeLDAPClient) Connect(ctx context.Context) error { return nil }
func (f *fakeLDAPClient) Close() error                      { return nil }
func (f *fakeLDAPClient) Bind(ctx context.Context, username, password string) error {
	return nil
}
func (f *fakeLDAPClient) BindWithConfig(ctx context.Context) error { return nil }

func (f *fakeLDAPClient) Search(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if f.searchFunc != nil {
		return f.searchFunc(ctx, req)
	}
	return &ldap.SearchResult{}, nil
}

func (f *fakeLDAPClient) Add(ctx context.Context, req *ldap.AddRequest) error {
	f.adds = append(f.adds, req)
	if f.addFunc != nil {
		return f.addFunc(ctx, req)
	}
	return nil
}

func (f *fakeLDAPClient) Modify(ctx context.Context, req *ldap.ModifyRequest) error {
	f.modifies = append(f.modifies, req)
	if f.modifyFunc != nil {
		return f.modifyFunc(ctx, req)
	}
	return nil
}

func (f *fakeLDAPClient) Delete(ctx context.Context, dn string) error { return nil }

func (f *fakeLDAPClient) Compare(ctx context.Context, dn, attribute, value string) (bool, error) {
	if f.compareFunc != nil {
		return f.compareFunc(ctx, dn, attribute, value)
	}
	return true, nil
}

func (f *fakeLDAPClient) Ping(ctx context.Context) error    { return nil }
func (f *fakeLDAPClient) Stats() ldap.PoolStats             { return ldap.PoolStats{} }
func (f *fakeLDAPClient) GetBaseDN(ctx context.Context) (string, error) {
	return "DC=example,DC=com", nil
}

// noSuchObjectErr builds the *goldap.Error reconcile.go's isNoSuchObject (via
// ldap.NewLDAPError's category mapping) recognizes.
func noSuchObjectErr() error {
	return &goldap.Error{ResultCode: goldap.LDAPResultNoSuchObject, Err: errors.New("no such object")}
}

func insufficientAccessErr() error {
	return &goldap.Error{ResultCode: goldap.LDAPResultInsufficientAccessRights, Err: errors.New("insufficient access rights")}
}

// fakeConnection is a scriptable stand-in for connection.Connection.
type fakeConnection struct {
	hostFQDN      string
	namingContext string
	domainRealm   string
	loginType     connection.LoginType
	ldapClient    ldap.Client

	changePasswordFunc func(ctx context.Context, newPassword string, target *krb5.Principal) (krb5.Result, error)
	probeSaltFunc      func(ctx context.Context, principal krb5.Principal, candidate krb5.SaltCandidate, encTypeID int32, password string) (bool, error)

	lastErr string
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		hostFQDN:      "host1.example.com",
		namingContext: "DC=example,DC=com",
		domainRealm:   "EXAMPLE.COM",
		loginType:     connection.LoginTypeUserAccount,
		ldapClient:    &fakeLDAPClient{},
	}
}

func (f *fakeConnection) HostFQDN() string                { return f.hostFQDN }
func (f *fakeConnection) NamingContext() string           { return f.namingContext }
func (f *fakeConnection) DomainRealm() string              { return f.domainRealm }
func (f *fakeConnection) LoginType() connection.LoginType  { return f.loginType }
func (f *fakeConnection) LDAP() ldap.Client                { return f.ldapClient }

func (f *fakeConnection) ChangePassword(ctx context.Context, newPassword string, target *krb5.Principal) (krb5.Result, error) {
	if f.changePasswordFunc != nil {
		return f.changePasswordFunc(ctx, newPassword, target)
	}
	return krb5.Result{Code: 0}, nil
}

func (f *fakeConnection) ProbeSalt(ctx context.Context, principal krb5.Principal, candidate krb5.SaltCandidate, encTypeID int32, password string) (bool, error) {
	if f.probeSaltFunc != nil {
		return f.probeSaltFunc(ctx, principal, candidate, encTypeID, password)
	}
	return candidate.Name == "standard", nil
}

func (f *fakeConnection) LastError() string { return f.lastErr }
func (f *fakeConnection) ClearLastError()   { f.lastErr = "" }
func (f *fakeConnection) Close() error      { return nil }
