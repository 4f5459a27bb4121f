package enroll

import (
	"context"
	"strconv"

	"github.com/adjoin/adjoin/internal/krb5"
	"github.com/adjoin/adjoin/internal/ldap"
	logx "github.com/adjoin/adjoin/internal/logging"
)

// retrieveComputerAccountInfo implements spec.md §4.5's
// retrieve_computer_account_info: a base-scope search for the post-creation
// attributes, with a malformed kvno treated as *directory* and absence treated
// as kvno 0 (old AD).
func (s *Session) retrieveComputerAccountInfo(ctx context.Context) *Error {
	result, err := s.conn.LDAP().Search(ctx, &ldap.SearchRequest{
		BaseDN: s.computerDN,
		Scope:  ldap.ScopeBaseObject,
		Filter: "(objectClass=*)",
		Attributes: []string{
			"msDS-KeyVersionNumber",
			"msDS-supportedEncryptionTypes",
			"dNSHostName",
			"servicePrincipalName",
			"objectSid",
			"objectGUID",
		},
	})
	if err != nil {
		return directoryf(err, "retrieve computer account info for %s", s.computerDN)
	}
	if len(result.Entries) == 0 {
		return directoryf(nil, "computer object %s vanished after creation", s.computerDN)
	}

	entry := result.Entries[0]
	s.computerAttributes = map[string][]string{
		"msDS-KeyVersionNumber":         entry.GetAttributeValues("msDS-KeyVersionNumber"),
		"msDS-supportedEncryptionTypes": entry.GetAttributeValues("msDS-supportedEncryptionTypes"),
		"dNSHostName":                   entry.GetAttributeValues("dNSHostName"),
		"servicePrincipalName":          entry.GetAttributeValues("servicePrincipalName"),
	}

	s.kvno = 0
	if raw := entry.GetAttributeValue("msDS-KeyVersionNumber"); raw != "" {
		kvno, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return directoryf(err, "parse msDS-KeyVersionNumber %q on %s", raw, s.computerDN)
		}
		s.kvno = uint32(kvno)
	}

	// Decode the computer object's binary objectSid/objectGUID for debug-level
	// diagnostics, the same identifiers the teacher's provider logs whenever it
	// reads back a computer object. Decode failures are swallowed by the Safe
	// variants (they return "" rather than an error) since these are purely
	// informational and never feed back into enrollment decisions.
	logx.SubsystemDebug(ctx, "enroll", "computer object identifiers", map[string]any{
		"dn":         s.computerDN,
		"objectSid":  ldap.NewSIDHandler().ExtractSIDSafe(entry),
		"objectGUID": ldap.NewGUIDHandler().ExtractGUIDSafe(entry),
	})
	return nil
}

// updateAndCalculateEncTypes implements spec.md §4.5's
// update_and_calculate_enctypes: adopt the directory's enctypes when the caller
// didn't set any explicitly, warn-and-keep-default on an invalid directory value,
// and REPLACE the attribute only when the effective mask differs from what's
// stored.
func (s *Session) updateAndCalculateEncTypes(ctx context.Context) {
	if !s.keytabEncTypesExplicit {
		if stored := firstOrEmpty(s.computerAttributes["msDS-supportedEncryptionTypes"]); stored != "" {
			if parsed, ok := krb5.EncTypesFromMaskString(stored); ok {
				s.keytabEncTypes = parsed
			} else {
				logx.SubsystemWarn(ctx, "enroll", "directory msDS-supportedEncryptionTypes is malformed, keeping default", map[string]any{
					"dn":    s.computerDN,
					"value": stored,
				})
			}
		}
	}
	if s.keytabEncTypes == nil {
		s.keytabEncTypes = krb5.DefaultEncTypes
	}

	mask := krb5.MaskString(krb5.Mask(s.keytabEncTypes))
	if mask == firstOrEmpty(s.computerAttributes["msDS-supportedEncryptionTypes"]) {
		return
	}

	err := s.conn.LDAP().Modify(ctx, &ldap.ModifyRequest{
		DN:                s.computerDN,
		ReplaceAttributes: map[string][]string{"msDS-supportedEncryptionTypes": {mask}},
	})
	s.logBestEffort(ctx, "update msDS-supportedEncryptionTypes", err)
}

// updateDNSHostName implements spec.md §4.5's update_dns_host_name.
func (s *Session) updateDNSHostName(ctx context.Context) {
	if s.hostFQDN == "" || s.hostFQDN == firstOrEmpty(s.computerAttributes["dNSHostName"]) {
		return
	}
	err := s.conn.LDAP().Modify(ctx, &ldap.ModifyRequest{
		DN:                s.computerDN,
		ReplaceAttributes: map[string][]string{"dNSHostName": {s.hostFQDN}},
	})
	s.logBestEffort(ctx, "update dNSHostName", err)
}

// updateServicePrincipals implements spec.md §4.5's update_service_principals:
// REPLACE servicePrincipalName only if the multi-valued set differs.
func (s *Session) updateServicePrincipals(ctx context.Context) {
	wanted := make([]string, 0, len(s.servicePrincipals))
	for _, p := range s.servicePrincipals {
		wanted = append(wanted, p.String())
	}
	if sameValueSet(wanted, s.computerAttributes["servicePrincipalName"]) {
		return
	}
	err := s.conn.LDAP().Modify(ctx, &ldap.ModifyRequest{
		DN:                s.computerDN,
		ReplaceAttributes: map[string][]string{"servicePrincipalName": wanted},
	})
	s.logBestEffort(ctx, "update servicePrincipalName", err)
}

// logBestEffort logs a failed best-effort update without aborting enrollment,
// per spec.md §4.5 ("all three updates are best-effort").
func (s *Session) logBestEffort(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}
	logx.SubsystemWarn(ctx, "enroll", "best-effort attribute update failed", map[string]any{
		"dn":        s.computerDN,
		"operation": operation,
		"error":     err.Error(),
	})
}

// writeAttributes runs retrieve_computer_account_info (required) followed by the
// three best-effort updates.
func (s *Session) writeAttributes(ctx context.Context) *Error {
	if err := s.retrieveComputerAccountInfo(ctx); err != nil {
		return err
	}
	s.updateAndCalculateEncTypes(ctx)
	s.updateDNSHostName(ctx)
	s.updateServicePrincipals(ctx)
	return nil
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
