package cmd

import (
	"github.com/spf13/cobra"

	"github.com/faize-ai/guestdir/internal/guestfs"
)

var (
	mktempVM         string
	mktempPrefix     string
	mktempSuffix     string
	mktempParentPath string
)

var mktempCmd = &cobra.Command{
	Use:   "mktemp",
	Short: "Create a uniquely named guest directory",
	Long: `Create a new temporary directory in the guest OS of a VM. Every run
creates a new directory; its path is the result value.

Examples:
  guestdir mktemp --vm vm-42 --prefix job-
  guestdir mktemp --vm vm-42 --prefix job- --suffix .d --parent-path /var/tmp`,
	Args: cobra.NoArgs,
	RunE: runMktemp,
}

func init() {
	mktempCmd.Flags().StringVar(&mktempVM, "vm", "", "VM identifier (e.g. vm-42)")
	mktempCmd.Flags().StringVar(&mktempPrefix, "prefix", "", "directory name prefix")
	mktempCmd.Flags().StringVar(&mktempSuffix, "suffix", "", "directory name suffix")
	mktempCmd.Flags().StringVar(&mktempParentPath, "parent-path", "", "parent directory (default: the guest's temporary directory)")
	_ = mktempCmd.MarkFlagRequired("vm")

	rootCmd.AddCommand(mktempCmd)
}

func runMktemp(cmd *cobra.Command, args []string) error {
	return runSingle(cmd, &guestfs.Request{
		VM:         mktempVM,
		Prefix:     mktempPrefix,
		Suffix:     mktempSuffix,
		ParentPath: mktempParentPath,
		State:      guestfs.StateCreateTemporary,
	}, false)
}
