package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adjoin/adjoin/internal/enroll"
)

// newJoinCmd builds the "join" subcommand: connect, derive name/password,
// reconcile the computer object, set its credential, write back attributes,
// and synchronize the keytab — the full enroll.Session.Join pipeline.
func newJoinCmd(flags *cliFlags, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "join",
		Short: "Enroll this host as an Active Directory computer account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogging(flags); err != nil {
				return err
			}
			cfg, err := loadConfig(flags, v)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			conn, err := connect(ctx, &cfg.Connection)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer conn.Close()

			s := enroll.New(conn)
			defer s.Release()

			applyEnrollment(s, &cfg.Enrollment)

			if err := s.Join(ctx, enrollFlags(&cfg.Enrollment)); err != nil {
				return fmt.Errorf("join failed (%s): %s", err.Kind, err.Message)
			}

			fmt.Printf("joined %s as %s\n", s.ComputerDN(), s.ComputerSAM())
			return nil
		},
	}
}
