package cmd

import (
	"context"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// newLoginCmd creates the 'login' command
func newLoginCmd(stdout, stderr io.Writer, cliCfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in to the task board service",
		Long:  "Authenticate against the backend and store the session token in the OS keyring.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()

			username := args[0]
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password, err = promptPassword(stderr)
				if err != nil {
					return err
				}
			}

			res, err := a.client.Login(context.Background(), username, password)
			if err != nil {
				return err
			}
			if err := a.session.SetToken(res.Token, res.ExpiresIn); err != nil {
				return err
			}
			if err := a.session.SetIdentity(res.UserID, res.DisplayName, res.IsAdmin, res.MessagingLinked); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(stdout, "Signed in as %s\n", res.DisplayName)
			if res.IsAdmin {
				_, _ = fmt.Fprintln(stdout, "Administrator privileges active")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().String("password", "", "Password (prompts when omitted)")
	return cmd
}

// promptPassword reads a password without echo.
func promptPassword(stderr io.Writer) (string, error) {
	_, _ = fmt.Fprint(stderr, "Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	_, _ = fmt.Fprintln(stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

// newLogoutCmd creates the 'logout' command
func newLogoutCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and discard the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.session.Clear(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdout, "Signed out")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newStatusCmd creates the 'status' command
func newStatusCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and backend status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()

			_, _ = fmt.Fprintf(stdout, "Server:  %s\n", a.cfg.Server.BaseURL)
			_, _ = fmt.Fprintf(stdout, "Device:  %s\n", a.session.DeviceID())

			if !a.session.LoggedIn() {
				_, _ = fmt.Fprintln(stdout, "Session: not signed in")
				return nil
			}

			_, _ = fmt.Fprintf(stdout, "Session: %s (user %d)\n", a.session.DisplayName(), a.session.UserID())
			if a.session.IsAdmin() {
				_, _ = fmt.Fprintln(stdout, "Role:    administrator")
			}
			if a.session.Expired() {
				_, _ = fmt.Fprintln(stdout, "Token:   expired")
			} else {
				_, _ = fmt.Fprintf(stdout, "Token:   valid for %s\n", a.session.RemainingValidity().Round(time.Second))
			}

			if err := a.client.Ping(context.Background()); err != nil {
				_, _ = fmt.Fprintln(stdout, "Backend: unreachable")
			} else {
				_, _ = fmt.Fprintln(stdout, "Backend: reachable")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
