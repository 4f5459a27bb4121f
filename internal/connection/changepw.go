package connection

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/adjoin/adjoin/internal/krb5"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"
)

// kpasswdSPN is the service principal every RFC 3244 kpasswd exchange targets,
// regardless of which principal's password is actually being changed.
const kpasswdSPN = "kadmin/changepw"

// kpasswdProtocolVersion is the RFC 3244 §3.4 protocol version number for a
// password-change request (as opposed to 0xff80, the "set password" variant used
// by administrative resets against some KDC implementations).
const kpasswdProtocolVersion = uint16(1)

// ChangePassword implements Connection.ChangePassword: it obtains a service
// ticket for kadmin/changepw with the bound Kerberos client, then runs the
// RFC 3244 protocol exchange against the realm's kpasswd service.
func (c *conn) ChangePassword(ctx context.Context, newPassword string, target *krb5.Principal) (krb5.Result, error) {
	return krb5.ChangePassword(ctx, newPassword, target, c.kpasswdExchange)
}

// kpasswdExchange is an internal/krb5.Exchange: it wraps the marshaled
// ChangePasswdData in an AP-REQ and KRB-PRIV per RFC 3244 §3.1-§3.4, sends it to
// the realm's kpasswd service over UDP port 464, and returns the decrypted reply
// plaintext for internal/krb5.ParseResult.
func (c *conn) kpasswdExchange(ctx context.Context, changePasswdData []byte) ([]byte, error) {
	tkt, sessionKey, err := c.krb5Client.GetServiceTicket(kpasswdSPN)
	if err != nil {
		return nil, fmt.Errorf("get %s service ticket: %w", kpasswdSPN, err)
	}

	auth, err := types.NewAuthenticator(c.domainRealm, c.krb5Client.Credentials.CName())
	if err != nil {
		return nil, fmt.Errorf("build authenticator: %w", err)
	}

	apReq, err := messages.NewAPReq(tkt, sessionKey, auth)
	if err != nil {
		return nil, fmt.Errorf("build AP-REQ: %w", err)
	}
	apReqBytes, err := apReq.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal AP-REQ: %w", err)
	}

	// TODO: verify EType.EncryptMessage's exact return arity against the vendored
	// gokrb5 version; this assumes (etype ID, ciphertext, error).
	et, err := crypto.GetEtype(sessionKey.KeyType)
	if err != nil {
		return nil, fmt.Errorf("resolve session key etype: %w", err)
	}
	_, privCiphertext, err := et.EncryptMessage(sessionKey.KeyValue, changePasswdData, keyusage.KRB_PRIV_ENCPART)
	if err != nil {
		return nil, fmt.Errorf("encrypt KRB-PRIV body: %w", err)
	}

	request := marshalKpasswdRequest(apReqBytes, privCiphertext)

	reply, err := c.sendKpasswd(ctx, request)
	if err != nil {
		return nil, err
	}

	_, plaintext, err := et.DecryptMessage(sessionKey.KeyValue, reply, keyusage.KRB_PRIV_ENCPART)
	if err != nil {
		return nil, fmt.Errorf("decrypt kpasswd reply: %w", err)
	}
	return plaintext, nil
}

// marshalKpasswdRequest frames an AP-REQ and an already-encrypted KRB-PRIV body
// per RFC 3244 §3.4: a 2-byte total message length, the protocol version, the
// AP-REQ length, the AP-REQ itself, and the KRB-PRIV body.
func marshalKpasswdRequest(apReq, krbPrivBody []byte) []byte {
	const headerLen = 6 // length + version + ap-req length, each 2 bytes
	total := headerLen + len(apReq) + len(krbPrivBody)

	buf := make([]byte, total)
	binary.BigEndian.PutUint16(buf[0:2], uint16(total))
	binary.BigEndian.PutUint16(buf[2:4], kpasswdProtocolVersion)
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(apReq)))
	copy(buf[headerLen:], apReq)
	copy(buf[headerLen+len(apReq):], krbPrivBody)
	return buf
}

// sendKpasswd sends request to the kpasswd service and returns the KRB-PRIV body
// of the reply (the caller decrypts it separately).
func (c *conn) sendKpasswd(ctx context.Context, request []byte) ([]byte, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	address := net.JoinHostPort(c.hostFQDN, "464")

	connUDP, err := dialer.DialContext(ctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("dial kpasswd service %s: %w", address, err)
	}
	defer connUDP.Close()

	deadline := time.Now().Add(c.timeout)
	if err := connUDP.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set kpasswd deadline: %w", err)
	}

	if _, err := connUDP.Write(request); err != nil {
		return nil, fmt.Errorf("send kpasswd request: %w", err)
	}

	buf := make([]byte, 65536)
	n, err := connUDP.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read kpasswd reply: %w", err)
	}
	reply := buf[:n]

	if len(reply) < 6 {
		return nil, fmt.Errorf("kpasswd reply too short (%d bytes)", len(reply))
	}
	apRepLen := binary.BigEndian.Uint16(reply[4:6])
	privStart := 6 + int(apRepLen)
	if privStart > len(reply) {
		return nil, fmt.Errorf("kpasswd reply AP-REP length %d exceeds message", apRepLen)
	}
	return reply[privStart:], nil
}

// ProbeSalt implements Connection.ProbeSalt. It derives the key candidate.Salt and
// encTypeID would produce for password, builds a throwaway in-memory keytab entry
// around that key, and attempts a login with it: the KDC only accepts the
// resulting AS-REQ if the key we derived matches the key Active Directory itself
// computed when it stored the new password, which is exactly the question salt
// auto-discovery (spec.md §4.6 step 2) needs answered. A login failure is treated
// as "this candidate is wrong", not a hard error, so the caller can move on to the
// next candidate.
func (c *conn) ProbeSalt(ctx context.Context, principal krb5.Principal, candidate krb5.SaltCandidate, encTypeID int32, password string) (bool, error) {
	key, err := krb5.DeriveKey(password, candidate.Salt, principal, encTypeID)
	if err != nil {
		return false, fmt.Errorf("derive key for candidate salt %s: %w", candidate.Name, err)
	}

	kt := keytab.New()
	kt.Entries = append(kt.Entries, keytab.Entry{
		Principal: keytab.Principal{
			NumComponents: int16(len(principal.Components())),
			Realm:         principal.Realm,
			Components:    principal.Components(),
			NameType:      int32(principal.Name.NameType),
		},
		Timestamp: time.Now(),
		KVNO:      1,
		Key:       key,
	})

	probeClient := krb5client.NewWithKeytab(
		strings.Join(principal.Components(), "/"),
		principal.Realm,
		kt,
		c.krb5Client.Config,
		krb5client.DisablePAFXFAST(true),
	)
	defer probeClient.Destroy()

	if err := probeClient.Login(); err != nil {
		return false, nil
	}
	return true, nil
}
