package enroll

import (
	"context"
	"testing"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adjoin/adjoin/internal/ldap"
)

func TestReconcileCreatesWhenAbsent(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		return nil, noSuchObjectErr()
	}
	s := New(conn)
	s.computerDN = "CN=HOST1,CN=Computers,DC=example,DC=com"
	s.computerSAM = "HOST1$"

	err := s.reconcile(context.Background(), 0)
	require.Nil(t, err)
	require.Len(t, client.adds, 1)
	assert.Equal(t, s.computerDN, client.adds[0].DN)
	assert.Equal(t, []string{"computer"}, client.adds[0].Attributes["objectClass"])
	assert.Equal(t, []string{"69632"}, client.adds[0].Attributes["userAccountControl"])
}

func TestReconcileCreateMapsInsufficientAccessToCredentials(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		return nil, noSuchObjectErr()
	}
	client.addFunc = func(ctx context.Context, req *ldap.AddRequest) error {
		return insufficientAccessErr()
	}
	s := New(conn)
	s.computerDN = "CN=HOST1,CN=Computers,DC=example,DC=com"
	s.computerSAM = "HOST1$"

	err := s.reconcile(context.Background(), 0)
	require.NotNil(t, err)
	assert.Equal(t, KindCredentials, err.Kind)
}

func TestReconcileFoundWithoutOverwriteFailsConfig(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		entry := goldap.NewEntry(req.BaseDN, map[string][]string{"sAMAccountName": {"HOST1$"}})
		return &ldap.SearchResult{Entries: []*goldap.Entry{entry}}, nil
	}
	s := New(conn)
	s.computerDN = "CN=HOST1,CN=Computers,DC=example,DC=com"
	s.computerSAM = "HOST1$"

	err := s.reconcile(context.Background(), 0)
	require.NotNil(t, err)
	assert.Equal(t, KindConfig, err.Kind)
	assert.Empty(t, client.adds)
	assert.Empty(t, client.modifies)
}

func TestReconcileFoundWithOverwriteIsIdempotentWhenUnchanged(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		entry := goldap.NewEntry(req.BaseDN, map[string][]string{
			"objectClass":        {"computer"},
			"sAMAccountName":     {"HOST1$"},
			"userAccountControl": {"69632"},
		})
		return &ldap.SearchResult{Entries: []*goldap.Entry{entry}}, nil
	}
	s := New(conn)
	s.computerDN = "CN=HOST1,CN=Computers,DC=example,DC=com"
	s.computerSAM = "HOST1$"

	err := s.reconcile(context.Background(), AllowOverwrite)
	require.Nil(t, err)
	assert.Empty(t, client.modifies, "diff set is empty, no modify issued")
}

func TestReconcileFoundWithOverwriteReplacesOnlyDifferingAttrs(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		entry := goldap.NewEntry(req.BaseDN, map[string][]string{
			"objectClass":        {"computer"},
			"sAMAccountName":     {"WRONG$"},
			"userAccountControl": {"69632"},
		})
		return &ldap.SearchResult{Entries: []*goldap.Entry{entry}}, nil
	}
	s := New(conn)
	s.computerDN = "CN=HOST1,CN=Computers,DC=example,DC=com"
	s.computerSAM = "HOST1$"

	err := s.reconcile(context.Background(), AllowOverwrite)
	require.Nil(t, err)
	require.Len(t, client.modifies, 1)
	assert.Equal(t, map[string][]string{"sAMAccountName": {"HOST1$"}}, client.modifies[0].ReplaceAttributes)
}

func TestReconcileModifyMapsInsufficientAccessToCredentials(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		entry := goldap.NewEntry(req.BaseDN, map[string][]string{"sAMAccountName": {"WRONG$"}})
		return &ldap.SearchResult{Entries: []*goldap.Entry{entry}}, nil
	}
	client.modifyFunc = func(ctx context.Context, req *ldap.ModifyRequest) error {
		return insufficientAccessErr()
	}
	s := New(conn)
	s.computerDN = "CN=HOST1,CN=Computers,DC=example,DC=com"
	s.computerSAM = "HOST1$"

	err := s.reconcile(context.Background(), AllowOverwrite)
	require.NotNil(t, err)
	assert.Equal(t, KindCredentials, err.Kind)
}

func TestSameValueSet(t *testing.T) {
	assert.True(t, sameValueSet([]string{"a", "b"}, []string{"b", "a"}))
	assert.False(t, sameValueSet([]string{"a"}, []string{"a", "b"}))
	assert.False(t, sameValueSet([]string{"a", "a"}, []string{"a", "b"}))
}

func TestPruneEmpty(t *testing.T) {
	in := map[string][]string{"a": {"x"}, "b": {}}
	out := pruneEmpty(in)
	assert.Equal(t, map[string][]string{"a": {"x"}}, out)
}
