package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/faize-ai/guestdir/internal/config"
	"github.com/faize-ai/guestdir/internal/logging"
)

var (
	cfgFile string
	debug   bool
)

// ErrFailed is returned after a result whose failed flag is set has been
// printed. It carries no message of its own.
var ErrFailed = errors.New("operation failed")

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"vcenter-hostname":       config.KeyHostname,
	"vcenter-username":       config.KeyUsername,
	"vcenter-password":       config.KeyPassword,
	"vcenter-validate-certs": config.KeyValidateCerts,
	"vcenter-rest-log-file":  config.KeyRestLogFile,
	"session-cache":          config.KeySessionCache,
	"timeout":                config.KeyTimeout,
	"guest-credential-type":  config.KeyGuestType,
	"guest-user":             config.KeyGuestUserName,
	"guest-password":         config.KeyGuestPassword,
	"guest-saml-token":       config.KeyGuestSAMLToken,
	"guest-interactive":      config.KeyGuestInteractive,
}

// Debug prints a message if debug mode is enabled
func Debug(format string, args ...interface{}) {
	if debug {
		logging.S().Debugf(format, args...)
	}
}

var rootCmd = &cobra.Command{
	Use:   "guestdir",
	Short: "guestdir - manage directories inside vSphere guests",
	Long: `guestdir converges directories inside a virtual machine's guest OS
through the vCenter guest operations REST API.

Make sure a directory exists:
  guestdir mkdir --vm vm-42 --path /tmp/build --create-parents

Remove, move or create a scratch directory:
  guestdir rmdir --vm vm-42 --path /tmp/build --recursive
  guestdir mv --vm vm-42 --path /tmp/a --new-path /tmp/b
  guestdir mktemp --vm vm-42 --prefix job-

Apply a list of directory tasks:
  guestdir apply -f tasks.yaml

Connection settings come from flags, VMWARE_* environment variables or
~/.guestdir/config.yaml.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	_ = logging.Sync()
	return err
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is ~/.guestdir/config.yaml)")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")

	flags.String("vcenter-hostname", "", "vCenter hostname (env VMWARE_HOST)")
	flags.String("vcenter-username", "", "vCenter username (env VMWARE_USER)")
	flags.String("vcenter-password", "", "vCenter password (env VMWARE_PASSWORD)")
	flags.Bool("vcenter-validate-certs", true, "validate the vCenter TLS certificate (env VMWARE_VALIDATE_CERTS)")
	flags.String("vcenter-rest-log-file", "", "append every HTTP exchange to this file (env VMWARE_REST_LOG_FILE)")
	flags.Bool("session-cache", true, "reuse API sessions cached in ~/.guestdir/sessions")
	flags.String("timeout", "60s", "HTTP timeout per request")

	flags.String("guest-credential-type", "USERNAME_PASSWORD", "guest credential type (USERNAME_PASSWORD or SAML_BEARER_TOKEN)")
	flags.String("guest-user", "", "guest OS user name")
	flags.String("guest-password", "", "guest OS password")
	flags.String("guest-saml-token", "", "guest OS SAML bearer token")
	flags.Bool("guest-interactive", false, "run in the interactive session of the guest user")
	flags.BoolVar(&guestAskPass, "guest-ask-pass", false, "prompt for the guest password")
}

func initLogging(cmd *cobra.Command, args []string) error {
	level := "info"
	if debug {
		level = "debug"
	}
	if err := logging.Init(logging.Config{Level: level, Format: "console"}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	Debug("guestdir %s starting", cmd.Name())
	return nil
}
