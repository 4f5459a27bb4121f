package enroll

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adjoin/adjoin/internal/connection"
	"github.com/adjoin/adjoin/internal/krb5"
)

func TestSetCredentialUserAccountPassesComputerPrincipalAsTarget(t *testing.T) {
	conn := newFakeConnection()
	conn.loginType = connection.LoginTypeUserAccount

	var gotTarget *krb5.Principal
	conn.changePasswordFunc = func(ctx context.Context, newPassword string, target *krb5.Principal) (krb5.Result, error) {
		gotTarget = target
		return krb5.Result{Code: 0}, nil
	}

	s := New(conn)
	s.computerPassword = "secret"
	s.computerPrincipal, _ = krb5.ParsePrincipal("HOST1$", "EXAMPLE.COM")

	err := s.setCredential(context.Background())
	require.Nil(t, err)
	require.NotNil(t, gotTarget)
	assert.Equal(t, s.computerPrincipal, *gotTarget)
}

func TestSetCredentialComputerAccountPassesNilTarget(t *testing.T) {
	conn := newFakeConnection()
	conn.loginType = connection.LoginTypeComputerAccount

	var called bool
	conn.changePasswordFunc = func(ctx context.Context, newPassword string, target *krb5.Principal) (krb5.Result, error) {
		called = true
		assert.Nil(t, target)
		return krb5.Result{Code: 0}, nil
	}

	s := New(conn)
	s.computerPassword = "secret"

	err := s.setCredential(context.Background())
	require.Nil(t, err)
	assert.True(t, called)
}

func TestSetCredentialMapsExchangeErrorToDirectory(t *testing.T) {
	conn := newFakeConnection()
	conn.changePasswordFunc = func(ctx context.Context, newPassword string, target *krb5.Principal) (krb5.Result, error) {
		return krb5.Result{}, errors.New("kpasswd: connection refused")
	}
	s := New(conn)

	err := s.setCredential(context.Background())
	require.NotNil(t, err)
	assert.Equal(t, KindDirectory, err.Kind)
}

func TestSetCredentialMapsProtocolFailureToCredentials(t *testing.T) {
	conn := newFakeConnection()
	conn.changePasswordFunc = func(ctx context.Context, newPassword string, target *krb5.Principal) (krb5.Result, error) {
		return krb5.Result{Code: 5, Message: "password too short"}, nil
	}
	s := New(conn)

	err := s.setCredential(context.Background())
	require.NotNil(t, err)
	assert.Equal(t, KindCredentials, err.Kind)
	assert.Contains(t, err.Message, "password too short")
}
