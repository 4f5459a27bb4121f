package enroll

import (
	"context"
	"testing"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adjoin/adjoin/internal/ldap"
)

// wellKnownObjectsEntry builds the OU entry lookup_computer_container needs to
// resolve the default Computers container without falling back to a filter
// search.
func wellKnownObjectsEntry(dn string) *goldap.Entry {
	return goldap.NewEntry(dn, map[string][]string{
		"wellKnownObjects": {"B:32:AA312825768811D1ADED00C04FD8D5CD:CN=Computers,DC=example,DC=com"},
	})
}

// computerObjectSearchStages routes every search against the naming context (the
// preferredOU/wellKnownObjects lookups) to a canned answer, and every search
// against the computer DN through onComputerDN, counting calls so a test can
// report "absent" on the reconcile existence check and "present" on the later
// post-creation retrieve.
func computerObjectSearchStages(onComputerDN func(call int, req *ldap.SearchRequest) (*ldap.SearchResult, error)) func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	calls := 0
	return func(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		switch req.Filter {
		case "(objectClass=computer)", computersContainerFallbackFilter:
			return &ldap.SearchResult{}, nil
		}
		if req.BaseDN == "DC=example,DC=com" && req.Scope == ldap.ScopeBaseObject {
			return &ldap.SearchResult{Entries: []*goldap.Entry{wellKnownObjectsEntry(req.BaseDN)}}, nil
		}
		calls++
		return onComputerDN(calls, req)
	}
}

func TestPrepareDerivesStateWithoutTouchingDirectory(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	s := New(conn)

	err := s.Prepare(context.Background(), 0)
	require.Nil(t, err)
	assert.Equal(t, "HOST1", s.ComputerName())
	assert.Equal(t, "HOST1$", s.ComputerSAM())
	assert.Empty(t, client.adds)
	assert.Empty(t, client.modifies)
}

func TestPrepareIsIdempotent(t *testing.T) {
	s := New(newFakeConnection())
	require.Nil(t, s.Prepare(context.Background(), 0))
	name1 := s.ComputerSAM()
	require.Nil(t, s.Prepare(context.Background(), 0))
	assert.Equal(t, name1, s.ComputerSAM())
}

// absentThenFound answers "absent" to the first computer-DN search (reconcile's
// existence check) and "present, minimal attributes" to every one after (the
// attribute writer's post-creation retrieve) — the shape of a fresh join.
func absentThenFound(call int, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if call == 1 {
		return nil, noSuchObjectErr()
	}
	entry := goldap.NewEntry(req.BaseDN, map[string][]string{"msDS-KeyVersionNumber": {"1"}})
	return &ldap.SearchResult{Entries: []*goldap.Entry{entry}}, nil
}

func TestJoinFreshCreatesObjectAndKeytab(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = computerObjectSearchStages(absentThenFound)

	s := New(conn)
	err := s.Join(context.Background(), 0)
	require.Nil(t, err)

	require.Len(t, client.adds, 1)
	assert.Equal(t, "CN=HOST1,CN=Computers,DC=example,DC=com", client.adds[0].DN)
	require.NotNil(t, s.kt)
	assert.NotEmpty(t, s.kt.Entries)
}

func TestJoinSkipsKeytabWhenNoKeytabFlagSet(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = computerObjectSearchStages(absentThenFound)

	s := New(conn)
	err := s.Join(context.Background(), NoKeytab)
	require.Nil(t, err)
	assert.Nil(t, s.kt, "keytab synchronizer never ran")
}

func TestJoinOverwriteForbiddenFailsConfigWithNoWrites(t *testing.T) {
	conn := newFakeConnection()
	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = computerObjectSearchStages(func(call int, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		// The computer object already exists, on every call.
		entry := goldap.NewEntry(req.BaseDN, map[string][]string{"sAMAccountName": {"HOST1$"}})
		return &ldap.SearchResult{Entries: []*goldap.Entry{entry}}, nil
	})

	s := New(conn)
	err := s.Join(context.Background(), 0)
	require.NotNil(t, err)
	assert.Equal(t, KindConfig, err.Kind)
	assert.Empty(t, client.adds)
	assert.Empty(t, client.modifies)
	assert.Equal(t, err.Error(), s.LastError())
}

func TestJoinClearsLastErrorAtEntry(t *testing.T) {
	conn := newFakeConnection()
	conn.lastErr = "previous failure"
	s := New(conn)
	s.lastErr = "previous failure"

	client := conn.ldapClient.(*fakeLDAPClient)
	client.searchFunc = computerObjectSearchStages(absentThenFound)

	require.Nil(t, s.Join(context.Background(), NoKeytab))
	assert.Equal(t, "", conn.LastError())
}
