package main

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/dormo/internal/config"
)

// NewRootCmd creates the root command for the dormo server
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dormo",
		Short: "dormo - an HTTP authentication gateway",
		Long: `dormo registers users, signs them in with session cookies and
reports who is signed in. Requests are rate limited and failures are
answered with problem details.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
