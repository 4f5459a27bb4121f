package ldap

import (
	"context"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	logx "github.com/adjoin/adjoin/internal/logging"
	"go.uber.org/zap"
)

// Logger interface for LDAP operations.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Trace(msg string, fields map[string]any)
}

// ZapLogger wraps a zap.Logger for use in the LDAP package. It replaces the Terraform
// provider's TFLogger 1:1: same method set, same field-map shape, different sink.
type ZapLogger struct {
	log *zap.Logger
}

// NewZapLogger creates a logger for LDAP operations, named after subsystem (e.g.
// "ldap", "kerberos", "pool") the way the teacher scoped tflog subsystems.
func NewZapLogger(base *zap.Logger, subsystem string) *ZapLogger {
	return &ZapLogger{log: base.Named(subsystem)}
}

func toZapFields(fields map[string]any) []zap.Field {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return zf
}

func (l *ZapLogger) Debug(msg string, fields map[string]any) { l.log.Debug(msg, toZapFields(fields)...) }
func (l *ZapLogger) Info(msg string, fields map[string]any)  { l.log.Info(msg, toZapFields(fields)...) }
func (l *ZapLogger) Warn(msg string, fields map[string]any)  { l.log.Warn(msg, toZapFields(fields)...) }
func (l *ZapLogger) Error(msg string, fields map[string]any) { l.log.Error(msg, toZapFields(fields)...) }

// Trace has no zap equivalent level; it logs at Debug, same as the teacher's
// fallback cases did for tflog.SubsystemTrace when no more specific level applied.
func (l *ZapLogger) Trace(msg string, fields map[string]any) { l.log.Debug(msg, toZapFields(fields)...) }

// LogOperation is a helper function to log an operation with timing.
func LogOperation(ctx context.Context, subsystem, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()

	if fields == nil {
		fields = make(map[string]any)
	}
	fields["operation"] = operation

	logx.SubsystemDebug(ctx, subsystem, "Starting operation", fields)

	err := fn()

	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		fields["error"] = err.Error()
		logx.SubsystemError(ctx, subsystem, "Operation failed", fields)
	} else {
		logx.SubsystemDebug(ctx, subsystem, "Operation completed successfully", fields)
	}

	return err
}

// LogPerformance logs performance metrics for an operation.
func LogPerformance(ctx context.Context, subsystem, operation string, duration time.Duration, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["operation"] = operation
	fields["duration_ms"] = duration.Milliseconds()

	switch {
	case duration > 5*time.Second:
		logx.SubsystemWarn(ctx, subsystem, "Slow operation detected", fields)
	case duration > 1*time.Second:
		logx.SubsystemInfo(ctx, subsystem, "Operation performance", fields)
	default:
		logx.SubsystemDebug(ctx, subsystem, "Operation performance", fields)
	}
}

// LogLDAPError logs LDAP-specific error information.
func LogLDAPError(ctx context.Context, subsystem, operation string, err error, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}

	fields["operation"] = operation
	fields["error"] = err.Error()

	if ldapErr, ok := err.(*ldap.Error); ok {
		fields["ldap_result_code"] = ldapErr.ResultCode
		if ldapErr.MatchedDN != "" {
			fields["ldap_matched_dn"] = ldapErr.MatchedDN
		}
		if ldapErr.Err != nil {
			fields["ldap_diagnostic_message"] = ldapErr.Err.Error()
		}
	}

	logx.SubsystemError(ctx, subsystem, "LDAP operation failed", fields)
}

// LogConnectionEvent logs connection-related events.
func LogConnectionEvent(ctx context.Context, event string, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["event"] = event

	switch event {
	case "connection_established", "connection_reused", "authentication_success":
		logx.SubsystemInfo(ctx, "ldap", "Connection event", fields)
	case "connection_failed", "authentication_failed", "connection_lost":
		logx.SubsystemError(ctx, "ldap", "Connection event", fields)
	case "connection_attempt", "authentication_attempt":
		logx.SubsystemDebug(ctx, "ldap", "Connection event", fields)
	default:
		logx.SubsystemTrace(ctx, "ldap", "Connection event", fields)
	}
}

// LogKerberosEvent logs Kerberos-specific events.
func LogKerberosEvent(ctx context.Context, event string, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["event"] = event

	switch event {
	case "ticket_acquired", "keytab_loaded", "credentials_cached":
		logx.SubsystemInfo(ctx, "kerberos", "Kerberos event", fields)
	case "ticket_acquisition_failed", "keytab_load_failed", "authentication_failed":
		logx.SubsystemError(ctx, "kerberos", "Kerberos event", fields)
	case "ticket_renewal", "cache_cleanup", "principal_resolved":
		logx.SubsystemDebug(ctx, "kerberos", "Kerberos event", fields)
	default:
		logx.SubsystemTrace(ctx, "kerberos", "Kerberos event", fields)
	}
}

// LogPoolEvent logs connection pool events.
func LogPoolEvent(ctx context.Context, event string, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["event"] = event

	switch event {
	case "pool_initialized", "connection_acquired", "connection_released":
		logx.SubsystemDebug(ctx, "pool", "Pool event", fields)
	case "pool_exhausted", "connection_failed", "health_check_failed":
		logx.SubsystemWarn(ctx, "pool", "Pool event", fields)
	case "pool_creation_failed", "all_connections_failed":
		logx.SubsystemError(ctx, "pool", "Pool event", fields)
	default:
		logx.SubsystemTrace(ctx, "pool", "Pool event", fields)
	}
}

// SanitizeFields removes sensitive information from log fields.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any)

	sensitiveKeys := map[string]bool{
		"password":    true,
		"passwd":      true,
		"secret":      true,
		"token":       true,
		"key":         true,
		"private_key": true,
		"credential":  true,
		"credentials": true,
	}

	for k, v := range fields {
		if sensitiveKeys[k] {
			sanitized[k] = "[REDACTED]"
		} else if str, ok := v.(string); ok && containsSensitivePattern(str) {
			sanitized[k] = "[REDACTED]"
		} else {
			sanitized[k] = v
		}
	}

	return sanitized
}

// containsSensitivePattern checks if a string contains patterns that might be sensitive.
func containsSensitivePattern(s string) bool {
	patterns := []string{
		"password=",
		"passwd=",
		"secret=",
		"token=",
		"key=",
	}

	lower := strings.ToLower(s)
	for _, pattern := range patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}
