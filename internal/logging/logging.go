// Package logging is the ambient structured logger for the whole module. It replaces
// the Terraform plugin host's hashicorp/terraform-plugin-log with go.uber.org/zap,
// since this is a standalone CLI/daemon rather than a Terraform provider process.
//
// The subsystem-scoped helpers below (SubsystemDebug, SubsystemInfo, ...) mirror
// tflog's call shape exactly — (ctx, subsystem, msg, fields) — so packages adapted
// from the teacher keep their original call sites; only the backing sink changed.
package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

var (
	mu   sync.RWMutex
	base *zap.Logger
)

// Init installs the process-wide logger. Call once from cmd/adjoin's entry point;
// packages that log before Init call Nop and silently discard, matching the way an
// unconfigured tflog sink discards everything under test.
func Init(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		return zap.NewNop()
	}
	return base
}

func mergeFields(fields []map[string]any) []zap.Field {
	var total int
	for _, f := range fields {
		total += len(f)
	}
	if total == 0 {
		return nil
	}
	zf := make([]zap.Field, 0, total)
	for _, f := range fields {
		for k, v := range f {
			zf = append(zf, zap.Any(k, v))
		}
	}
	return zf
}

// Debug logs at debug level on the root logger. ctx is accepted but unused; it exists
// so call sites can thread request-scoped context the way tflog did, and so a future
// correlation-ID-in-context extractor can be added in one place.
func Debug(_ context.Context, msg string, fields ...map[string]any) { current().Debug(msg, mergeFields(fields)...) }
func Info(_ context.Context, msg string, fields ...map[string]any)  { current().Info(msg, mergeFields(fields)...) }
func Warn(_ context.Context, msg string, fields ...map[string]any)  { current().Warn(msg, mergeFields(fields)...) }
func Error(_ context.Context, msg string, fields ...map[string]any) { current().Error(msg, mergeFields(fields)...) }

// SubsystemDebug logs at debug level under a named subsystem logger.
func SubsystemDebug(_ context.Context, subsystem, msg string, fields ...map[string]any) {
	current().Named(subsystem).Debug(msg, mergeFields(fields)...)
}

// SubsystemInfo logs at info level under a named subsystem logger.
func SubsystemInfo(_ context.Context, subsystem, msg string, fields ...map[string]any) {
	current().Named(subsystem).Info(msg, mergeFields(fields)...)
}

// SubsystemWarn logs at warn level under a named subsystem logger.
func SubsystemWarn(_ context.Context, subsystem, msg string, fields ...map[string]any) {
	current().Named(subsystem).Warn(msg, mergeFields(fields)...)
}

// SubsystemError logs at error level under a named subsystem logger.
func SubsystemError(_ context.Context, subsystem, msg string, fields ...map[string]any) {
	current().Named(subsystem).Error(msg, mergeFields(fields)...)
}

// SubsystemTrace has no zap equivalent level; it logs at debug, same as the teacher's
// tflog.SubsystemTrace calls did whenever no more specific level applied.
func SubsystemTrace(_ context.Context, subsystem, msg string, fields ...map[string]any) {
	current().Named(subsystem).Debug(msg, mergeFields(fields)...)
}
