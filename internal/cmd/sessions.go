package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/faize-ai/guestdir/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List cached vCenter sessions",
	Long:  `List the API sessions cached in ~/.guestdir/sessions.`,
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to access session store: %w", err)
	}

	sessions, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, "No cached sessions.")
		return nil
	}

	// Create tabwriter for aligned output
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "HOST\tUSER\tENDPOINT\tCREATED\tLAST USED")
	_, _ = fmt.Fprintln(w, "----\t----\t--------\t-------\t---------")

	for _, sess := range sessions {
		lastUsed := "-"
		if sess.LastUsed != nil {
			lastUsed = sess.LastUsed.Local().Format("2006-01-02 15:04:05")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			sess.Hostname,
			sess.Username,
			sess.Endpoint,
			sess.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			lastUsed,
		)
	}

	_ = w.Flush()
	return nil
}
