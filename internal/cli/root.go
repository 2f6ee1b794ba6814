package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "dormoctl",
		Short: "CLI tool for the dormo auth gateway",
		Long: `dormoctl is a CLI tool for the dormo authentication API.

It registers accounts, signs in and out, and reports session status. The
session cookie is kept in a file between invocations.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LoadSession(); err != nil {
				return err
			}

			client = NewClient(cfg.ServerURL, cfg.CookieName, cfg.Session())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: DORMOCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.CookieFile, "cookie-file", cfg.CookieFile, "Session cookie file (env: DORMOCTL_COOKIE_FILE)")
	rootCmd.PersistentFlags().StringVar(&cfg.CookieName, "cookie-name", cfg.CookieName, "Session cookie name (env: DORMOCTL_COOKIE_NAME)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Add subcommands
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		NewOutput(cfg.Output, cmd.ErrOrStderr()).PrintError(err)
		os.Exit(1)
	}
}
