package enroll

import (
	"context"

	logx "github.com/adjoin/adjoin/internal/logging"
)

// Prepare implements spec.md §4.7's adcli_enroll_prepare: it runs only the
// derivation stages of §4.1 and is idempotent and safe to call repeatedly without
// touching the directory or KDC.
func (s *Session) Prepare(ctx context.Context, flags Flags) *Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLastError()
	s.ClearState()

	if err := s.deriveNameAndPassword(); err != nil {
		s.setLastError(err)
		return err
	}
	return nil
}

// Join implements spec.md §4.7's adcli_enroll_join: the full composed pipeline,
// in the §5 ordering guarantee (attribute writer after the password is set,
// keytab synchronizer last).
func (s *Session) Join(ctx context.Context, flags Flags) *Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLastError()
	s.ClearState()

	stages := []func(context.Context) *Error{
		func(context.Context) *Error { return s.deriveNameAndPassword() },
		s.resolveLocation,
		func(ctx context.Context) *Error { return s.reconcile(ctx, flags) },
		s.setCredential,
		s.writeAttributes,
	}

	for _, stage := range stages {
		if err := stage(ctx); err != nil {
			s.setLastError(err)
			logx.SubsystemError(ctx, "enroll", "join failed", map[string]any{
				"computer_dn": s.computerDN,
				"kind":        err.Kind.String(),
				"error":       err.Error(),
			})
			return err
		}
	}

	if flags.Has(NoKeytab) {
		return nil
	}

	if err := s.syncKeytab(ctx); err != nil {
		s.setLastError(err)
		logx.SubsystemError(ctx, "enroll", "keytab synchronization failed", map[string]any{
			"computer_dn": s.computerDN,
			"kind":        err.Kind.String(),
			"error":       err.Error(),
		})
		return err
	}

	logx.SubsystemInfo(ctx, "enroll", "join succeeded", map[string]any{
		"computer_dn":  s.computerDN,
		"computer_sam": s.computerSAM,
	})
	return nil
}
