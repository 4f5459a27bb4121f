package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/adjoin/adjoin/internal/config"
	"github.com/adjoin/adjoin/internal/connection"
	"github.com/adjoin/adjoin/internal/enroll"
	"github.com/adjoin/adjoin/internal/ldap"
	logx "github.com/adjoin/adjoin/internal/logging"
)

// initLogging builds the process-wide zap logger from the persistent flags and
// installs it — the one thing that must happen before any package logs.
func initLogging(flags *cliFlags) error {
	var zapCfg zap.Config
	if flags.logJSON {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(flags.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", flags.logLevel, err)
	}
	zapCfg.Level = level

	l, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logx.Init(l)
	return nil
}

// loadConfig reads flags/env/config-file into a config.Config and validates it.
func loadConfig(flags *cliFlags, v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v, flags.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// connect establishes the directory/Kerberos connection config.Connection
// describes. It is the only place in cmd/adjoin that touches internal/ldap or
// internal/connection directly — internal/enroll never does.
func connect(ctx context.Context, c *config.Connection) (connection.Connection, error) {
	cfg := connection.Config{
		LDAP: ldap.ConnectionConfig{
			Domain:         c.Domain,
			LDAPURLs:       c.LDAPURLs,
			Timeout:        c.Timeout,
			KerberosRealm:  c.KerberosRealm,
			KerberosKeytab: c.KerberosKeytab,
			KerberosConfig: c.KerberosConfig,
			Username:       c.Username,
			Password:       c.Password,
			UseTLS:         c.UseTLS,
			MaxConnections: c.MaxConnections,
		},
	}
	return connection.Connect(ctx, cfg)
}

// applyEnrollment copies the resolved config.Enrollment into session, using
// enroll.Session's explicit setters so ClearState can still tell a
// caller-supplied value from a derived one.
func applyEnrollment(s *enroll.Session, e *config.Enrollment) {
	if e.HostFQDN != "" {
		s.SetHostFQDN(e.HostFQDN)
	}
	if e.ComputerName != "" {
		s.SetComputerName(e.ComputerName)
	}
	if e.OU != "" {
		s.SetPreferredOU(e.OU)
	}
	if len(e.ServiceNames) > 0 {
		s.SetServiceNames(e.ServiceNames)
	}
	if len(e.Enctypes) > 0 {
		s.SetKeytabEncTypeNames(e.Enctypes)
	}
	if e.KeytabPath != "" {
		s.SetKeytabPath(e.KeytabPath)
	}
}

// enrollFlags maps config.Enrollment's two booleans onto enroll.Flags.
func enrollFlags(e *config.Enrollment) enroll.Flags {
	var f enroll.Flags
	if e.AllowOverwrite {
		f |= enroll.AllowOverwrite
	}
	if e.NoKeytab {
		f |= enroll.NoKeytab
	}
	return f
}
