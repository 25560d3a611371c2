package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atinyakov/roadsigns/internal/app"
	"github.com/atinyakov/roadsigns/internal/service"
	"github.com/atinyakov/roadsigns/internal/style"
)

// readSecret returns flagValue, or the first line of in when it is empty.
func readSecret(in io.Reader, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) registerCommand() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:     "register <identity>",
		GroupID: "session",
		Short:   "Register a new operator",
		Long: `Register a new operator identity.

The secret is taken from --secret or read as one line from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSecret(cmd.InOrStdin(), secret)
			if err != nil {
				return err
			}
			return c.withTracker(cmd, func(t *app.App) error {
				if err := t.Register(cmd.Context(), args[0], s); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Registered %s\n", style.SuccessPrefix, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "operator secret")
	return cmd
}

func (c *cli) loginCommand() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:     "login <identity>",
		GroupID: "session",
		Short:   "Log in as an operator",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSecret(cmd.InOrStdin(), secret)
			if err != nil {
				return err
			}
			return c.withTracker(cmd, func(t *app.App) error {
				if err := t.Login(cmd.Context(), args[0], s); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Logged in as %s (%d signs)\n",
					style.SuccessPrefix, args[0], len(t.Signs()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "operator secret")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		GroupID: "session",
		Short:   "Log out and purge all recorded signs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withTracker(cmd, func(t *app.App) error {
				if err := t.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Logged out\n", style.SuccessPrefix)
				return nil
			})
		},
	}
}

func (c *cli) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		GroupID: "session",
		Short:   "Show the logged-in operator",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withTracker(cmd, func(t *app.App) error {
				out := cmd.OutOrStdout()
				s := t.Session()
				if !s.Active {
					fmt.Fprintln(out, style.Dim.Render("Not logged in."))
					return nil
				}
				fmt.Fprintf(out, "%s %s\n", style.Bold.Render("Current operator:"), s.Identity)
				return nil
			})
		},
	}
}

// errorLine renders err for the terminal with a hint for the common cases.
func errorLine(err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrSessionInactive):
		msg = "not logged in; run 'roadsigns login <identity>' first"
	case errors.Is(err, service.ErrInvalidCredentials):
		msg = "invalid credentials"
	}
	return fmt.Sprintf("%s %s", style.ErrorPrefix, msg)
}
