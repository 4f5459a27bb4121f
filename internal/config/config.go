// Package config defines the configuration structures the enrollment client loads
// from flags, environment, and config file, and defaults them the way the teacher
// defaults its Terraform resource models: struct tags plus creasty/defaults.Set.
package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
)

// Connection holds the directory-connection half of the configuration: how to find
// and authenticate to a domain controller.
type Connection struct {
	Domain         string        `mapstructure:"domain"`
	LDAPURLs       []string      `mapstructure:"ldap_urls"`
	Timeout        time.Duration `mapstructure:"timeout" default:"30s"`
	KerberosRealm  string        `mapstructure:"kerberos_realm"`
	KerberosKeytab string        `mapstructure:"kerberos_keytab"`
	KerberosConfig string        `mapstructure:"kerberos_config" default:"/etc/krb5.conf"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	UseTLS         bool          `mapstructure:"use_tls" default:"true"`
	MaxConnections int           `mapstructure:"max_connections" default:"10"`
	MaxRetries     int           `mapstructure:"max_retries" default:"3"`
}

// Enrollment holds the domain-specific half: what to enroll, where, and how.
type Enrollment struct {
	// ComputerName is the NetBIOS-style computer account name. Empty derives it from
	// the local hostname (spec.md's ensure_computer_name).
	ComputerName string `mapstructure:"computer_name"`

	// HostFQDN overrides the derived fully-qualified hostname. Empty derives it.
	HostFQDN string `mapstructure:"host_fqdn"`

	// OU is the preferred organizational unit DN. Empty triggers lookup_preferred_ou.
	OU string `mapstructure:"ou"`

	// ServiceNames are the service names to mint principals for. A non-empty list
	// replaces the default HOST/RestrictedKrbHost pair.
	ServiceNames []string `mapstructure:"service_names"`

	// Enctypes is the caller's explicit enctype list. Empty means "derive" per
	// update_and_calculate_enctypes (adopt the directory's, else the built-in default).
	Enctypes []string `mapstructure:"enctypes"`

	// KeytabPath is where the synchronized keytab is written.
	KeytabPath string `mapstructure:"keytab_path" default:"/etc/krb5.keytab"`

	// AllowOverwrite maps to the ALLOW_OVERWRITE flag (spec.md §4.7).
	AllowOverwrite bool `mapstructure:"allow_overwrite" default:"false"`

	// NoKeytab maps to the NO_KEYTAB flag.
	NoKeytab bool `mapstructure:"no_keytab" default:"false"`
}

// Config is the full set of configuration the CLI front end assembles and the
// enrollment core consumes.
type Config struct {
	Connection Connection `mapstructure:"connection"`
	Enrollment Enrollment `mapstructure:"enrollment"`
}

// New returns a Config with every default applied, the way the teacher seeds its
// Terraform resource models before overlaying caller-supplied values.
func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to set configuration defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks the minimal set of fields the enrollment core requires to start.
func (c *Config) Validate() error {
	if c.Connection.Domain == "" && len(c.Connection.LDAPURLs) == 0 {
		return fmt.Errorf("connection.domain or connection.ldap_urls is required")
	}
	if c.Connection.KerberosRealm == "" {
		return fmt.Errorf("connection.kerberos_realm is required")
	}
	return nil
}
