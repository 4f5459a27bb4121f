package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adjoin/adjoin/internal/enroll"
)

// newPrepareCmd builds the "prepare" subcommand: derive the computer name,
// principal, and password without touching the directory — enroll.Session.
// Prepare — useful for previewing what a join would derive.
func newPrepareCmd(flags *cliFlags, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Derive the computer name, principal, and password without joining",
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

			if err := s.Prepare(ctx, enrollFlags(&cfg.Enrollment)); err != nil {
				return fmt.Errorf("prepare failed (%s): %s", err.Kind, err.Message)
			}

			fmt.Printf("computer_name=%s computer_sam=%s host_fqdn=%s\n",
				s.ComputerName(), s.ComputerSAM(), s.HostFQDN())
			return nil
		},
	}
}
