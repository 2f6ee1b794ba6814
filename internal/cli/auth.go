package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

const authPath = "/api/v1.0/auth"

// credentials is the register and login request body
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func newRegisterCmd() *cobra.Command {
	return newCredentialsCmd("register", "Register a new account and sign in", authPath+"/register")
}

func newLoginCmd() *cobra.Command {
	return newCredentialsCmd("login", "Sign in with an existing account", authPath+"/login")
}

// newCredentialsCmd builds a command that posts credentials and keeps the
// session cookie the server returns
func newCredentialsCmd(use, short, path string) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				pw, err := readSecret("Password: ", cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				password = pw
			}

			var result Message
			if err := client.Post(path, credentials{Email: email, Password: password}, &result); err != nil {
				return err
			}

			if err := persistSession(); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Message
			if err := client.Post(authPath+"/logout", nil, &result); err != nil {
				return err
			}

			// The server always clears the cookie; drop ours regardless
			if err := cfg.ClearSession(); err != nil {
				return fmt.Errorf("failed to remove session file: %w", err)
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the stored session is signed in",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AuthStatus
			if err := client.Get(authPath+"/status", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

// persistSession saves or removes the session file to match the client
func persistSession() error {
	session, changed := client.Session()
	if !changed {
		return nil
	}
	if session == "" {
		return cfg.ClearSession()
	}
	if err := cfg.SaveSession(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
