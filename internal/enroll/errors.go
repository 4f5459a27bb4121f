package enroll

import "fmt"

// Kind classifies every enrollment failure into one of the five buckets spec.md
// §7 names, so callers can distinguish a caller mistake from a directory refusal
// from a credentials problem without string-matching error messages.
type Kind int

const (
	// KindSuccess is the zero value; no Error with this Kind is ever returned.
	KindSuccess Kind = iota
	// KindUnexpected is a programmer or environment bug: nil arguments that should
	// have been validated earlier, or a Kerberos library error with no recognized
	// cause. Non-recoverable.
	KindUnexpected
	// KindFail is a generic, otherwise-unclassified failure — most commonly keytab
	// I/O.
	KindFail
	// KindDirectory means the LDAP or Kerberos server said no, or the data it
	// returned is malformed.
	KindDirectory
	// KindConfig means the caller-provided or discovered configuration is
	// internally inconsistent: an invalid OU, an unparseable SPN, a missing FQDN.
	KindConfig
	// KindCredentials means the caller's credentials are invalid or lack the
	// permission the operation needs.
	KindCredentials
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindUnexpected:
		return "unexpected"
	case KindFail:
		return "fail"
	case KindDirectory:
		return "directory"
	case KindConfig:
		return "config"
	case KindCredentials:
		return "credentials"
	default:
		return "unknown"
	}
}

// Error is the structured error every enrollment stage returns on failure: a Kind
// for programmatic handling, a message for humans, and the underlying cause (if
// any) for logging and %w-wrapping.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func unexpectedf(cause error, format string, args ...any) *Error {
	return newError(KindUnexpected, fmt.Sprintf(format, args...), cause)
}

func failf(cause error, format string, args ...any) *Error {
	return newError(KindFail, fmt.Sprintf(format, args...), cause)
}

func directoryf(cause error, format string, args ...any) *Error {
	return newError(KindDirectory, fmt.Sprintf(format, args...), cause)
}

func configf(format string, args ...any) *Error {
	return newError(KindConfig, fmt.Sprintf(format, args...), nil)
}

func credentialsf(cause error, format string, args ...any) *Error {
	return newError(KindCredentials, fmt.Sprintf(format, args...), cause)
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// KindUnexpected otherwise — any error escaping this package without having gone
// through newError is itself a programmer bug.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return KindUnexpected
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
