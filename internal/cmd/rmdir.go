package cmd

import (
	"github.com/spf13/cobra"

	"github.com/faize-ai/guestdir/internal/guestfs"
)

var (
	rmdirVM        string
	rmdirPath      string
	rmdirRecursive bool
	rmdirForce     bool
)

var rmdirCmd = &cobra.Command{
	Use:   "rmdir",
	Short: "Remove a guest directory",
	Long: `Remove a directory from the guest OS of a VM.

A non-empty directory is only removed with --recursive. Protected paths
(protected_paths in the config file) are refused unless --force is given.

Examples:
  guestdir rmdir --vm vm-42 --path /tmp/build
  guestdir rmdir --vm vm-42 --path /tmp/build --recursive`,
	Args: cobra.NoArgs,
	RunE: runRmdir,
}

func init() {
	rmdirCmd.Flags().StringVar(&rmdirVM, "vm", "", "VM identifier (e.g. vm-42)")
	rmdirCmd.Flags().StringVar(&rmdirPath, "path", "", "guest directory path")
	rmdirCmd.Flags().BoolVarP(&rmdirRecursive, "recursive", "r", false, "remove the directory contents too")
	rmdirCmd.Flags().BoolVarP(&rmdirForce, "force", "f", false, "allow removing protected paths")
	_ = rmdirCmd.MarkFlagRequired("vm")
	_ = rmdirCmd.MarkFlagRequired("path")

	rootCmd.AddCommand(rmdirCmd)
}

func runRmdir(cmd *cobra.Command, args []string) error {
	req := &guestfs.Request{
		VM:    rmdirVM,
		Path:  rmdirPath,
		State: guestfs.StateAbsent,
	}
	if cmd.Flags().Changed("recursive") {
		req.Recursive = guestfs.Bool(rmdirRecursive)
	}
	return runSingle(cmd, req, rmdirForce)
}
