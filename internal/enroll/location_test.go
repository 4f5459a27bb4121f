package enroll

import (
	"context"
	"testing"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adjoin/adjoin/internal/ldap"
)

func TestValidatePreferredOUAcceptsNamingContext(t *testing.T) {
	s := New(newFakeConnection())
	s.preferredOU = "DC=example,DC=com"

	err := s.validatePreferredOU(context.Background())
	require.Nil(t, err)
	assert.True(t, s.preferredOUValidated)
}

func TestValidatePreferredOUDefaultsToNamingContextWhenUnset(t *testing.T) {
	s := New(newFakeConnection())

	err := s.validatePreferredOU(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "DC=example,DC=com", s.PreferredOU())
}

func TestValidatePreferredOUAcceptsOrganizationalUnit(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.compareFunc = func(ctx context.Context, dn, attribute, value string) (bool, error) {
		assert.Equal(t, "OU=Servers,DC=example,DC=com", dn)
		assert.Equal(t, "objectClass", attribute)
		assert.Equal(t, "organizationalUnit", value)
		return true, nil
	}
	s := New(conn)
	s.preferredOU = "OU=Servers,DC=example,DC=com"

	err := s.validatePreferredOU(context.Background())
	require.Nil(t, err)
	assert.True(t, s.preferredOUValidated)
}

func TestValidatePreferredOURejectsNonOU(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.compareFunc = func(ctx context.Context, dn, attribute, value string) (bool, error) {
		return false, nil
	}
	s := New(conn)
	s.preferredOU = "CN=Users,DC=example,DC=com"

	err := s.validatePreferredOU(context.Background())
	require.NotNil(t, err)
	assert.Equal(t, KindConfig, err.Kind)
}

func TestValidatePreferredOURejectsMalformedDNWithoutADirectoryRoundTrip(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.compareFunc = func(ctx context.Context, dn, attribute, value string) (bool, error) {
		t.Fatal("Compare must not be called for a syntactically invalid OU")
		return false, nil
	}
	s := New(conn)
	s.preferredOU = "not-a-dn"

	err := s.validatePreferredOU(context.Background())
	require.NotNil(t, err)
	assert.Equal(t, KindConfig, err.Kind)
}

func TestValidatePreferredOUIsNoOpOnceValidated(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	calls := 0
	client.compareFunc = func(ctx context.Context, dn, attribute, value string) (bool, error) {
		calls++
		return true, nil
	}
	s := New(conn)
	s.preferredOU = "OU=Servers,DC=example,DC=com"

	require.Nil(t, s.validatePreferredOU(context.Background()))
	require.Nil(t, s.validatePreferredOU(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestLookupPreferredOUFallsBackToNamingContextWhenEmpty(t *testing.T) {
	s := New(newFakeConnection())

	err := s.lookupPreferredOU(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "DC=example,DC=com", s.PreferredOU())
}

func TestLookupPreferredOUUsesDiscoveredValue(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		entry := goldap.NewEntry("CN=somehost,DC=example,DC=com", map[string][]string{
			"preferredOU": {"OU=Servers,DC=example,DC=com"},
		})
		return &ldap.SearchResult{Entries: []*goldap.Entry{entry}}, nil
	}
	s := New(conn)

	err := s.lookupPreferredOU(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "OU=Servers,DC=example,DC=com", s.PreferredOU())
}

func TestLookupComputerContainerUsesWellKnownObjects(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		entry := goldap.NewEntry("OU=Servers,DC=example,DC=com", map[string][]string{
			"wellKnownObjects": {"B:32:AA312825768811D1ADED00C04FD8D5CD:CN=Computers,DC=example,DC=com"},
		})
		return &ldap.SearchResult{Entries: []*goldap.Entry{entry}}, nil
	}
	s := New(conn)
	s.preferredOU = "OU=Servers,DC=example,DC=com"

	err := s.lookupComputerContainer(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "CN=Computers,DC=example,DC=com", s.ComputerContainer())
}

func TestLookupComputerContainerFallsBackToComputersFilter(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		if req.Filter == computersContainerFallbackFilter {
			entry := goldap.NewEntry("CN=Computers,DC=example,DC=com", nil)
			return &ldap.SearchResult{Entries: []*goldap.Entry{entry}}, nil
		}
		return &ldap.SearchResult{}, nil
	}
	s := New(conn)
	s.preferredOU = "OU=Servers,DC=example,DC=com"

	err := s.lookupComputerContainer(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "CN=Computers,DC=example,DC=com", s.ComputerContainer())
}

func TestLookupComputerContainerFallsBackToOUItself(t *testing.T) {
	conn := newFakeConnection()
	s := New(conn)
	s.preferredOU = "OU=Servers,DC=example,DC=com"

	err := s.lookupComputerContainer(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "OU=Servers,DC=example,DC=com", s.ComputerContainer())
}

func TestCalcComputerAccount(t *testing.T) {
	s := New(newFakeConnection())
	s.computerName = "HOST1"
	s.computerContainer = "CN=Computers,DC=example,DC=com"

	err := s.calcComputerAccount()
	require.Nil(t, err)
	assert.Equal(t, "CN=HOST1,CN=Computers,DC=example,DC=com", s.ComputerDN())
}

func TestResolveLocationRunsAllStages(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		if req.Filter == "(objectClass=computer)" {
			return &ldap.SearchResult{}, nil
		}
		entry := goldap.NewEntry("DC=example,DC=com", map[string][]string{
			"wellKnownObjects": {"B:32:AA312825768811D1ADED00C04FD8D5CD:CN=Computers,DC=example,DC=com"},
		})
		return &ldap.SearchResult{Entries: []*goldap.Entry{entry}}, nil
	}
	s := New(conn)
	s.computerName = "HOST1"

	err := s.resolveLocation(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "DC=example,DC=com", s.PreferredOU())
	assert.Equal(t, "CN=Computers,DC=example,DC=com", s.ComputerContainer())
	assert.Equal(t, "CN=HOST1,CN=Computers,DC=example,DC=com", s.ComputerDN())
}
