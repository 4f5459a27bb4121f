package enroll

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStrings(t *testing.T) {
	cases := map[Kind]string{
		KindSuccess:     "success",
		KindUnexpected:  "unexpected",
		KindFail:        "fail",
		KindDirectory:   "directory",
		KindConfig:      "config",
		KindCredentials: "credentials",
		Kind(99):        "unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestConstructorsSetKindAndMessage(t *testing.T) {
	cause := errors.New("boom")

	assert.Equal(t, KindUnexpected, unexpectedf(cause, "x %d", 1).Kind)
	assert.Equal(t, KindFail, failf(cause, "x").Kind)
	assert.Equal(t, KindDirectory, directoryf(cause, "x").Kind)
	assert.Equal(t, KindConfig, configf("x").Kind)
	assert.Equal(t, KindCredentials, credentialsf(cause, "x").Kind)

	err := directoryf(cause, "search %s", "CN=x")
	assert.Equal(t, "search CN=x", err.Message)
	assert.Equal(t, cause, err.Cause)
}

func TestErrorMessageFormatting(t *testing.T) {
	withCause := directoryf(errors.New("no such object"), "search %s", "CN=x")
	assert.Equal(t, "directory: search CN=x: no such object", withCause.Error())

	withoutCause := configf("invalid OU: %s", "CN=y")
	assert.Equal(t, "config: invalid OU: CN=y", withoutCause.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := directoryf(cause, "x")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestKindOfNilIsSuccess(t *testing.T) {
	assert.Equal(t, KindSuccess, KindOf(nil))
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	inner := credentialsf(nil, "denied")
	wrapped := fmt.Errorf("during join: %w", inner)
	assert.Equal(t, KindCredentials, KindOf(wrapped))
}

func TestKindOfForeignErrorIsUnexpected(t *testing.T) {
	assert.Equal(t, KindUnexpected, KindOf(errors.New("not one of ours")))
}
