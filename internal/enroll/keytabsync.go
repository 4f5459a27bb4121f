package enroll

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/adjoin/adjoin/internal/keytab"
	"github.com/adjoin/adjoin/internal/krb5"
	logx "github.com/adjoin/adjoin/internal/logging"
)

// syncKeytab implements spec.md §4.6's Keytab Synchronizer: discover the salt the
// KDC actually accepted (once per session), prune stale entries for every keytab
// principal down to the immediately previous kvno, and write one entry per
// (principal, enctype) at the current kvno.
func (s *Session) syncKeytab(ctx context.Context) *Error {
	if err := s.discoverSalt(ctx); err != nil {
		return err
	}

	if s.kt == nil {
		if err := s.loadKeytab(ctx); err != nil {
			return err
		}
	}

	var previousKVNO uint8
	if s.kvno > 0 {
		previousKVNO = uint8(s.kvno - 1)
	}

	for _, principal := range s.keytabPrincipals {
		s.kt.Prune(principal.Components(), principal.Realm, previousKVNO)

		for _, encType := range s.keytabEncTypes {
			key, err := krb5.DeriveKey(s.computerPassword, s.whichSalt.Salt, principal, encType.ID)
			if err != nil {
				return unexpectedf(err, "derive %s key for %s", encType.Name, principal)
			}
			s.kt.AddEntry(keytab.Entry{
				Principal: principal.Components(),
				Realm:     principal.Realm,
				NameType:  principal.Name.NameType,
				Timestamp: time.Now(),
				KVNO:      uint8(s.kvno),
				Key: keytab.Key{
					EncType:  encType.ID,
					KeyValue: key.KeyValue,
				},
			})
		}
	}

	if s.keytabPath == "" {
		return nil
	}
	if err := s.kt.Save(s.keytabPath); err != nil {
		return failf(err, "write keytab %s", s.keytabPath)
	}
	logx.SubsystemInfo(ctx, "enroll", "keytab written", map[string]any{
		"path":       s.keytabPath,
		"principals": len(s.keytabPrincipals),
		"kvno":       s.kvno,
	})
	return nil
}

// loadKeytab implements spec.md §4.6's "opens or creates the host keytab": read
// the existing file at s.keytabPath so Prune/AddEntry operate on the entries
// already on disk (from a previous join, or other principals sharing the same
// keytab) instead of silently truncating them on the next Save. A missing file
// is the ordinary first-join case and starts from an empty keytab; any other
// read or parse failure is keytab I/O per spec.md §4.6 and is fail, not
// directory — the directory was never involved.
func (s *Session) loadKeytab(ctx context.Context) *Error {
	if s.keytabPath == "" {
		s.kt = keytab.New()
		return nil
	}

	kt, err := keytab.Load(s.keytabPath)
	if errors.Is(err, os.ErrNotExist) {
		s.kt = keytab.New()
		return nil
	}
	if err != nil {
		return failf(err, "open keytab %s", s.keytabPath)
	}

	logx.SubsystemDebug(ctx, "enroll", "keytab opened", map[string]any{
		"path":    s.keytabPath,
		"entries": len(kt.Entries),
	})
	s.kt = kt
	return nil
}

// discoverSalt implements spec.md §4.6's "discover once per session" rule: once
// whichSalt is set, every subsequent call is a no-op, even across multiple
// principals and enctypes.
func (s *Session) discoverSalt(ctx context.Context) *Error {
	if s.whichSalt != nil {
		return nil
	}

	candidates := krb5.CandidateSalts(s.computerPrincipal, s.computerName)
	encTypeID := s.keytabEncTypes[0].ID

	probe := func(candidate krb5.SaltCandidate) (bool, error) {
		return s.conn.ProbeSalt(ctx, s.computerPrincipal, candidate, encTypeID, s.computerPassword)
	}

	salt, err := krb5.DiscoverSalt(candidates, probe)
	if err != nil {
		return directoryf(err, "discover salt for %s", s.computerPrincipal)
	}

	s.whichSalt = &salt
	logx.SubsystemDebug(ctx, "enroll", "salt discovered", map[string]any{
		"principal": s.computerPrincipal.String(),
		"salt":      salt.Name,
	})
	return nil
}
