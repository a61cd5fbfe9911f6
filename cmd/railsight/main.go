// Command railsight is a terminal client for the gateway: it keeps a
// persistent session under the user's home directory and exposes the
// dashboard data as subcommands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/railsight/railsight/client"
	"github.com/railsight/railsight/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	server      string
	sessionPath string

	api     *client.Client
	manager *session.Manager
}

func (a *app) init(ctx context.Context) error {
	if a.sessionPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		a.sessionPath = filepath.Join(home, ".railsight", "session.json")
	}

	a.api = client.New(a.server)
	a.manager = session.NewManager(session.Config{
		API:     a.api,
		Storage: session.NewFileStorage(a.sessionPath),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	a.manager.Restore(ctx)
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "railsight",
		Short:         "Railsight inspection client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.server, "server", envString("RAILSIGHT_SERVER", "http://localhost:8080"), "gateway base URL")
	root.PersistentFlags().StringVar(&a.sessionPath, "session-file", "", "session file path (default ~/.railsight/session.json)")

	root.AddCommand(
		newLoginCmd(a),
		newGuestCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newMetricsCmd(a),
		newNotificationsCmd(a),
	)
	return root
}

func newLoginCmd(a *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and persist the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = string(raw)
			}

			if !a.manager.Login(cmd.Context(), args[0], password) {
				return errors.New("login failed")
			}

			state := a.manager.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", state.User.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newGuestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Start a local guest session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.manager.LoginAsGuest(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Browsing as guest; server data is unavailable")
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Best effort server notification; the session is cleared
			// locally regardless.
			if token := a.manager.Token(); token != "" {
				_ = a.api.Logout(cmd.Context(), token)
			}
			a.manager.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state := a.manager.Snapshot()
			if !state.Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", state.User.Name, state.User.Email)
			return nil
		},
	}
}

func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show the dashboard summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := requireToken(a)
			if err != nil {
				return err
			}

			metrics, err := a.api.Metrics(cmd.Context(), token)
			if err != nil {
				return describeAPIError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracked components: %d\nActive issues:      %d\nMaintenance:        %d\n",
				metrics.Tracked, metrics.ActiveIssues, metrics.Maintenance)
			return nil
		},
	}
}

func newNotificationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "List inbox notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := requireToken(a)
			if err != nil {
				return err
			}

			notifications, err := a.api.Notifications(cmd.Context(), token)
			if err != nil {
				return describeAPIError(err)
			}
			if len(notifications) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notifications")
				return nil
			}
			for _, n := range notifications {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", n.Type, n.Title, n.Message)
			}
			return nil
		},
	}
}

func requireToken(a *app) (string, error) {
	state := a.manager.Snapshot()
	if !state.Authenticated {
		return "", errors.New("not signed in; run `railsight login`")
	}
	token := a.manager.Token()
	if token == "" {
		return "", errors.New("guest sessions cannot reach server data; run `railsight login`")
	}
	return token, nil
}

func describeAPIError(err error) error {
	if errors.Is(err, client.ErrUnauthenticated) {
		return errors.New("session expired; run `railsight login` again")
	}
	return err
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
