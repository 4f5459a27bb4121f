package connection

import (
	"context"
	"fmt"
	"strings"
	"time"

	logx "github.com/adjoin/adjoin/internal/logging"
	"github.com/adjoin/adjoin/internal/ldap"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/keytab"
)

// conn is the concrete Connection built by Connect. It owns a pooled ldap.Client
// (already bound, either via GSSAPI or simple bind) and, separately, a raw gokrb5
// client used only for the kpasswd exchange — the LDAP bind goes through the
// teacher's go-ldap/gssapi wrapper, which does not expose ticket acquisition for
// an arbitrary SPN, so the password-change path keeps its own gokrb5 client.
type conn struct {
	lastError

	hostFQDN      string
	namingContext string
	domainRealm   string
	loginType     LoginType

	ldapClient ldap.Client
	krb5Client *krb5client.Client
	timeout    time.Duration
}

// Connect establishes the LDAP pool (per cfg.LDAP), discovers the naming context
// and domain realm from the bound directory's root DSE, and builds the raw
// Kerberos client the kpasswd exchange (internal/krb5.Exchange) will use.
func Connect(ctx context.Context, cfg Config) (Connection, error) {
	ldapClient, err := ldap.NewClientWithContext(ctx, &cfg.LDAP)
	if err != nil {
		return nil, fmt.Errorf("connection: build ldap client: %w", err)
	}
	if err := ldapClient.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connection: connect: %w", err)
	}
	if err := ldapClient.BindWithConfig(ctx); err != nil {
		_ = ldapClient.Close()
		return nil, fmt.Errorf("connection: bind: %w", err)
	}

	namingContext, err := ldapClient.GetBaseDN(ctx)
	if err != nil {
		_ = ldapClient.Close()
		return nil, fmt.Errorf("connection: discover naming context: %w", err)
	}

	realm := cfg.LDAP.KerberosRealm
	if realm == "" {
		realm = deriveRealm(cfg.LDAP.Domain)
	}
	realm = strings.ToUpper(realm)

	hostFQDN := cfg.LDAP.Domain
	if hostFQDN == "" && len(cfg.LDAP.LDAPURLs) > 0 {
		hostFQDN = cfg.LDAP.LDAPURLs[0]
	}

	krb5Client, err := buildKrb5Client(&cfg.LDAP)
	if err != nil {
		_ = ldapClient.Close()
		return nil, fmt.Errorf("connection: build kerberos client: %w", err)
	}
	if err := krb5Client.Login(); err != nil {
		_ = ldapClient.Close()
		return nil, fmt.Errorf("connection: kerberos login: %w", err)
	}

	timeout := cfg.KpasswdTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	logx.SubsystemInfo(ctx, "connection", "bound to directory", map[string]any{
		"naming_context": namingContext,
		"domain_realm":   realm,
		"login_type":     cfg.resolveLoginType().String(),
	})

	return &conn{
		hostFQDN:      hostFQDN,
		namingContext: namingContext,
		domainRealm:   realm,
		loginType:     cfg.resolveLoginType(),
		ldapClient:    ldapClient,
		krb5Client:    krb5Client,
		timeout:       timeout,
	}, nil
}

// buildKrb5Client mirrors the teacher's createGSSAPIClientWithContext credential
// priority (explicit ccache, then explicit keytab, then password) but returns the
// raw gokrb5 client.Client rather than the go-ldap GSSAPI wrapper, since only the
// raw client exposes GetServiceTicket for the kadmin/changepw SPN the kpasswd
// exchange needs.
func buildKrb5Client(cfg *ldap.ConnectionConfig) (*krb5client.Client, error) {
	krb5confPath := cfg.KerberosConfig
	if krb5confPath == "" {
		krb5confPath = "/etc/krb5.conf"
	}
	conf, err := krb5config.Load(krb5confPath)
	if err != nil {
		return nil, fmt.Errorf("load krb5.conf: %w", err)
	}

	if cfg.KerberosCCache != "" {
		cc, err := credentials.LoadCCache(cfg.KerberosCCache)
		if err != nil {
			return nil, fmt.Errorf("load credential cache: %w", err)
		}
		return krb5client.NewFromCCache(cc, conf, krb5client.DisablePAFXFAST(true))
	}

	if cfg.KerberosKeytab != "" {
		kt, err := keytab.Load(cfg.KerberosKeytab)
		if err != nil {
			return nil, fmt.Errorf("load keytab: %w", err)
		}
		return krb5client.NewWithKeytab(cfg.Username, cfg.KerberosRealm, kt, conf, krb5client.DisablePAFXFAST(true)), nil
	}

	if cfg.Username != "" && cfg.Password != "" {
		return krb5client.NewWithPassword(cfg.Username, cfg.KerberosRealm, cfg.Password, conf, krb5client.DisablePAFXFAST(true)), nil
	}

	return nil, fmt.Errorf("no kerberos credentials configured (need ccache, keytab, or username/password)")
}

// deriveRealm uppercases the domain as the Kerberos realm when no explicit realm
// was configured — the same heuristic the teacher's kerberos auto-discovery uses.
func deriveRealm(domain string) string {
	return strings.ToUpper(domain)
}

func (c *conn) HostFQDN() string      { return c.hostFQDN }
func (c *conn) NamingContext() string { return c.namingContext }
func (c *conn) DomainRealm() string   { return c.domainRealm }
func (c *conn) LoginType() LoginType  { return c.loginType }
func (c *conn) LDAP() ldap.Client     { return c.ldapClient }

func (c *conn) Close() error {
	c.krb5Client.Destroy()
	return c.ldapClient.Close()
}
