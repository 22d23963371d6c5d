package cmd

import (
	"github.com/spf13/cobra"

	"github.com/faize-ai/guestdir/internal/guestfs"
)

var (
	mvVM      string
	mvPath    string
	mvNewPath string
	mvForce   bool
)

var mvCmd = &cobra.Command{
	Use:   "mv",
	Short: "Move or rename a guest directory",
	Long: `Move or rename a directory in the guest OS of a VM.

Examples:
  guestdir mv --vm vm-42 --path /tmp/a --new-path /tmp/b`,
	Args: cobra.NoArgs,
	RunE: runMv,
}

func init() {
	mvCmd.Flags().StringVar(&mvVM, "vm", "", "VM identifier (e.g. vm-42)")
	mvCmd.Flags().StringVar(&mvPath, "path", "", "guest directory to move")
	mvCmd.Flags().StringVar(&mvNewPath, "new-path", "", "destination path")
	mvCmd.Flags().BoolVarP(&mvForce, "force", "f", false, "allow moving protected paths")
	_ = mvCmd.MarkFlagRequired("vm")
	_ = mvCmd.MarkFlagRequired("path")
	_ = mvCmd.MarkFlagRequired("new-path")

	rootCmd.AddCommand(mvCmd)
}

func runMv(cmd *cobra.Command, args []string) error {
	return runSingle(cmd, &guestfs.Request{
		VM:      mvVM,
		Path:    mvPath,
		NewPath: mvNewPath,
		State:   guestfs.StateMove,
	}, mvForce)
}
