package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cliFlags holds the persistent flags every subcommand shares: where to load
// configuration from and how verbosely to log.
type cliFlags struct {
	configFile string
	logLevel   string
	logJSON    bool
}

// NewRootCmd builds the adjoin command tree: persistent flags for config/
// logging, plus the prepare/join/version subcommands. Mirrors the shape of
// stratastor/rodent's NewRootCmd — a bare Cobra root with no Run of its own,
// every behavior living in a subcommand.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:           "adjoin",
		Short:         "Join a host to Active Directory as a computer account",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "path to a YAML/JSON/TOML configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "emit logs as JSON instead of human-readable console output")

	bindConnectionFlags(root.PersistentFlags(), v)
	bindEnrollmentFlags(root.PersistentFlags(), v)

	root.AddCommand(newPrepareCmd(flags, v))
	root.AddCommand(newJoinCmd(flags, v))
	root.AddCommand(newVersionCmd())

	return root
}
