package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faize-ai/guestdir/internal/session"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cached vCenter sessions",
	Long: `Remove every cached API session from ~/.guestdir/sessions without
contacting vCenter. Use 'guestdir logout' to end a session on the server.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to access session store: %w", err)
	}

	sessions, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	removedCount := 0
	for _, sess := range sessions {
		if err := store.Delete(sess.ID); err != nil {
			_, _ = fmt.Fprintf(out, "Warning: failed to delete session %s@%s: %v\n", sess.Username, sess.Hostname, err)
			continue
		}
		_, _ = fmt.Fprintf(out, "Removed session: %s@%s\n", sess.Username, sess.Hostname)
		removedCount++
	}

	if removedCount == 0 {
		_, _ = fmt.Fprintln(out, "No sessions to remove.")
	} else {
		_, _ = fmt.Fprintf(out, "Removed %d session(s).\n", removedCount)
	}
	return nil
}
