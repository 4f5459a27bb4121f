package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindConnectionFlags registers the flags that populate config.Connection and
// binds each to viper under the same key a config file or ADJOIN_-prefixed
// environment variable would use, so flag, env, and file all resolve through
// one viper instance regardless of source.
func bindConnectionFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.String("domain", "", "Active Directory domain to join (SRV-discovers domain controllers)")
	fs.StringSlice("ldap-urls", nil, "explicit LDAP URLs, overrides SRV discovery")
	fs.Duration("timeout", 0, "LDAP connection timeout")
	fs.String("kerberos-realm", "", "Kerberos realm, upper-cased (required)")
	fs.String("kerberos-keytab", "", "path to a Kerberos keytab for GSSAPI bind/login")
	fs.String("kerberos-config", "", "path to krb5.conf")
	fs.String("username", "", "bind username (UPN/SAM/DN); unset with a keytab means a computer-account login")
	fs.String("password", "", "bind password for simple/kinit-style authentication")
	fs.Bool("use-tls", false, "require TLS for the LDAP connection")
	fs.Int("max-connections", 0, "LDAP connection pool size")

	for flagName, key := range map[string]string{
		"domain":          "connection.domain",
		"ldap-urls":       "connection.ldap_urls",
		"timeout":         "connection.timeout",
		"kerberos-realm":  "connection.kerberos_realm",
		"kerberos-keytab": "connection.kerberos_keytab",
		"kerberos-config": "connection.kerberos_config",
		"username":        "connection.username",
		"password":        "connection.password",
		"use-tls":         "connection.use_tls",
		"max-connections": "connection.max_connections",
	} {
		_ = v.BindPFlag(key, fs.Lookup(flagName))
	}
}

// bindEnrollmentFlags registers the flags that populate config.Enrollment.
func bindEnrollmentFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.String("computer-name", "", "NetBIOS computer account name; derived from the host FQDN if unset")
	fs.String("host-fqdn", "", "fully qualified hostname; derived from the local host if unset")
	fs.String("ou", "", "preferred organizational unit DN; defaults to the domain's Computers container")
	fs.StringSlice("service-names", nil, "service names to mint principals for; replaces the HOST/RestrictedKrbHost default")
	fs.StringSlice("enctypes", nil, "explicit Kerberos encryption types for the keytab; derived from the directory if unset")
	fs.String("keytab-path", "", "where the synchronized keytab is written")
	fs.Bool("allow-overwrite", false, "permit modifying an existing computer object instead of failing")
	fs.Bool("no-keytab", false, "skip keytab synchronization entirely")

	for flagName, key := range map[string]string{
		"computer-name":   "enrollment.computer_name",
		"host-fqdn":       "enrollment.host_fqdn",
		"ou":              "enrollment.ou",
		"service-names":   "enrollment.service_names",
		"enctypes":        "enrollment.enctypes",
		"keytab-path":     "enrollment.keytab_path",
		"allow-overwrite": "enrollment.allow_overwrite",
		"no-keytab":       "enrollment.no_keytab",
	} {
		_ = v.BindPFlag(key, fs.Lookup(flagName))
	}
}
