package krb5

import (
	"context"
	"encoding/asn1"
	"encoding/binary"
	"fmt"

	"github.com/jcmturner/gokrb5/v8/types"
)

// ChangePasswdData is the RFC 3244 §2 payload carried inside the KRB-PRIV message
// exchanged with the kpasswd service on port 464. TargName/TargRealm are left zero
// for a self-change (the authenticated principal changing its own password) and
// set to the target principal for an admin-initiated reset of a different one —
// the two credential paths spec.md §4.4 describes collapse to the same payload
// shape, differing only in whether a target is supplied.
type ChangePasswdData struct {
	NewPasswd []byte              `asn1:"tag:0"`
	TargName  types.PrincipalName `asn1:"tag:1,optional,explicit"`
	TargRealm string              `asn1:"tag:2,optional,explicit,generalstring"`
}

// MarshalChangePasswdData ASN.1-encodes a kpasswd request payload. target is nil
// for a self-change; non-nil for an admin reset of another principal.
func MarshalChangePasswdData(newPassword string, target *Principal) ([]byte, error) {
	data := ChangePasswdData{NewPasswd: []byte(newPassword)}
	if target != nil {
		data.TargName = target.Name
		data.TargRealm = target.Realm
	}

	encoded, err := asn1.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("krb5: marshal ChangePasswdData: %w", err)
	}
	return encoded, nil
}

// Result is the decoded kpasswd reply described in RFC 3244 §3.8: a 2-byte result
// code followed by a free-form result string, carried as the plaintext of the
// KRB-PRIV reply.
type Result struct {
	Code    uint16
	Message string
}

// Success reports whether the kpasswd service accepted the request. A zero result
// code is the only success value RFC 3244 defines.
func (r Result) Success() bool {
	return r.Code == 0
}

// ParseResult decodes a kpasswd reply's plaintext (after the caller has decrypted
// the enclosing KRB-PRIV message) into a Result.
func ParseResult(plaintext []byte) (Result, error) {
	if len(plaintext) < 2 {
		return Result{}, fmt.Errorf("krb5: kpasswd reply too short (%d bytes)", len(plaintext))
	}
	return Result{
		Code:    binary.BigEndian.Uint16(plaintext[:2]),
		Message: string(plaintext[2:]),
	}, nil
}

// Exchange performs one round trip against the kpasswd service. send receives the
// marshaled ChangePasswdData and is responsible for wrapping it in an AP-REQ and
// KRB-PRIV message, transmitting it to port 464, and returning the decrypted reply
// plaintext — the authentication context (the admin's ticket for a reset, or the
// computer's own ticket for a self-change) lives entirely in send's closure, so
// this function stays agnostic to which of the two credential paths is in use.
type Exchange func(ctx context.Context, changePasswdData []byte) ([]byte, error)

// ChangePassword runs the full kpasswd protocol exchange for a self-change (target
// nil) or an admin-initiated reset (target set), per spec.md §4.4.
func ChangePassword(ctx context.Context, newPassword string, target *Principal, send Exchange) (Result, error) {
	payload, err := MarshalChangePasswdData(newPassword, target)
	if err != nil {
		return Result{}, err
	}

	reply, err := send(ctx, payload)
	if err != nil {
		return Result{}, fmt.Errorf("krb5: kpasswd exchange: %w", err)
	}

	return ParseResult(reply)
}
