package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/faize-ai/guestdir/internal/session"
	"github.com/faize-ai/guestdir/internal/vmrest"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the cached vCenter session",
	Long: `Invalidate the API session cached for the configured user and host and
remove it from ~/.guestdir/sessions.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	conn, err := cfg.Connection()
	if err != nil {
		return err
	}

	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to access session store: %w", err)
	}

	cached := store.Lookup(conn.Hostname, conn.Username)
	if cached == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No cached session for %s@%s.\n", conn.Username, conn.Hostname)
		return nil
	}

	client, err := vmrest.OpenSession(cmd.Context(), conn, store)
	if err != nil {
		return fmt.Errorf("failed to open session on %s: %w", conn.Hostname, err)
	}
	defer func() {
		err = multierr.Append(err, client.Close())
	}()

	if err := client.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	if err := store.Delete(cached.ID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s@%s.\n", conn.Username, conn.Hostname)
	return nil
}
