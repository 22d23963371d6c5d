package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/faize-ai/guestdir/internal/guestfs"
	"github.com/faize-ai/guestdir/internal/vmrest"
)

var (
	applyFile  string
	applyForce bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a list of directory tasks",
	Long: `Reconcile every task of a YAML file in order on one vCenter session.

The file is a list of tasks with the fields vm, path, new_path,
parent_path, prefix, suffix, create_parents, recursive, state and,
optionally, credentials. Tasks without credentials use the guest
credentials from flags or the config file.

Processing stops at the first error. The results gathered so far are
printed as a JSON array.

Example tasks.yaml:
  - vm: vm-42
    path: /opt/app/cache
    create_parents: true
  - vm: vm-42
    path: /tmp/old
    state: absent
    recursive: true

  guestdir apply -f tasks.yaml
  cat tasks.yaml | guestdir apply -f -`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "task file, - for stdin")
	applyCmd.Flags().BoolVar(&applyForce, "force", false, "allow removing or moving protected paths")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	tasks, err := readTasks(cmd.InOrStdin(), applyFile)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no tasks in %s", applyFile)
	}
	Debug("Loaded %d task(s) from %s", len(tasks), applyFile)

	results, runErr := runRequests(cmd, tasks, applyForce)
	if results == nil {
		results = []*vmrest.Result{}
	}
	if err := printJSON(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if anyFailed(results) {
		return ErrFailed
	}
	return nil
}

// readTasks decodes the task list from file, or from stdin when file is "-".
func readTasks(stdin io.Reader, file string) ([]*guestfs.Request, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var tasks []*guestfs.Request
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse task file: %w", err)
	}
	for i, t := range tasks {
		if t == nil {
			return nil, fmt.Errorf("task %d is empty", i+1)
		}
	}
	return tasks, nil
}
