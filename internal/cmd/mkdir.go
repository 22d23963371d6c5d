package cmd

import (
	"github.com/spf13/cobra"

	"github.com/faize-ai/guestdir/internal/guestfs"
)

var (
	mkdirVM            string
	mkdirPath          string
	mkdirCreateParents bool
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir",
	Short: "Make sure a guest directory exists",
	Long: `Make sure a directory exists in the guest OS of a VM.

An existing directory is left alone and reported unchanged.

Examples:
  guestdir mkdir --vm vm-42 --path /tmp/build
  guestdir mkdir --vm vm-42 --path /opt/app/cache --create-parents`,
	Args: cobra.NoArgs,
	RunE: runMkdir,
}

func init() {
	mkdirCmd.Flags().StringVar(&mkdirVM, "vm", "", "VM identifier (e.g. vm-42)")
	mkdirCmd.Flags().StringVar(&mkdirPath, "path", "", "guest directory path")
	mkdirCmd.Flags().BoolVarP(&mkdirCreateParents, "create-parents", "p", false, "create missing parent directories")
	_ = mkdirCmd.MarkFlagRequired("vm")
	_ = mkdirCmd.MarkFlagRequired("path")

	rootCmd.AddCommand(mkdirCmd)
}

func runMkdir(cmd *cobra.Command, args []string) error {
	req := &guestfs.Request{
		VM:    mkdirVM,
		Path:  mkdirPath,
		State: guestfs.StatePresent,
	}
	if cmd.Flags().Changed("create-parents") {
		req.CreateParents = guestfs.Bool(mkdirCreateParents)
	}
	return runSingle(cmd, req, false)
}
