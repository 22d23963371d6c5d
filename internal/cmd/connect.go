package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/faize-ai/guestdir/internal/config"
	"github.com/faize-ai/guestdir/internal/guestfs"
	"github.com/faize-ai/guestdir/internal/guestpath"
	"github.com/faize-ai/guestdir/internal/session"
	"github.com/faize-ai/guestdir/internal/vmrest"
)

var guestAskPass bool

// readPassword prompts for the guest password on the controlling terminal.
var readPassword = func() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--guest-ask-pass needs an interactive terminal")
	}
	fmt.Fprint(os.Stderr, "Guest password: ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read guest password: %w", err)
	}
	return string(pass), nil
}

// loadConfig resolves the configuration for cmd: flags over environment over
// config file over defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	Debug("Config loaded successfully")
	return cfg, nil
}

// sessionStore returns the session cache, or nil when caching is disabled.
func sessionStore(cfg *config.Config) (*session.Store, error) {
	if !cfg.ShouldCacheSession() {
		return nil, nil
	}
	store, err := session.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to access session store: %w", err)
	}
	return store, nil
}

// connect opens an API session for cfg.
func connect(ctx context.Context, cfg *config.Config) (*vmrest.Client, error) {
	conn, err := cfg.Connection()
	if err != nil {
		return nil, err
	}

	store, err := sessionStore(cfg)
	if err != nil {
		return nil, err
	}

	client, err := vmrest.OpenSession(ctx, conn, store)
	if err != nil {
		return nil, fmt.Errorf("failed to open session on %s: %w", conn.Hostname, err)
	}
	Debug("Session open on %s", conn.Hostname)
	return client, nil
}

// guestCredentials builds the guest credentials from the configuration,
// prompting for the password when --guest-ask-pass is set.
func guestCredentials(cfg *config.Config) (*guestfs.Credentials, error) {
	creds := &guestfs.Credentials{
		InteractiveSession: cfg.Guest.InteractiveSession,
		Type:               cfg.Guest.Type,
		UserName:           cfg.Guest.UserName,
		Password:           cfg.Guest.Password,
		SAMLToken:          cfg.Guest.SAMLToken,
	}

	if guestAskPass {
		pass, err := readPassword()
		if err != nil {
			return nil, err
		}
		creds.Password = pass
	}
	return creds, nil
}

// checkProtected refuses requests that would remove or move a protected
// guest path.
func checkProtected(cfg *config.Config, req *guestfs.Request) error {
	if req.State != guestfs.StateAbsent && req.State != guestfs.StateMove {
		return nil
	}
	return guestpath.NewGuard(cfg.ProtectedPaths).Check(req.Path)
}

// runRequests reconciles reqs in order on a single session and returns the
// results gathered before the first error. Requests without credentials get
// the configured guest credentials.
func runRequests(cmd *cobra.Command, reqs []*guestfs.Request, force bool) (results []*vmrest.Result, err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	var creds *guestfs.Credentials
	for _, req := range reqs {
		if req.State == "" {
			req.State = guestfs.StatePresent
		}
		if !force {
			if err := checkProtected(cfg, req); err != nil {
				return nil, err
			}
		}
		if req.Credentials == nil {
			if creds == nil {
				if creds, err = guestCredentials(cfg); err != nil {
					return nil, err
				}
			}
			req.Credentials = creds
		}
	}

	ctx := cmd.Context()
	client, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, client.Close())
	}()

	reconciler := guestfs.NewReconciler(client)
	for i, req := range reqs {
		result, err := reconciler.Reconcile(ctx, req)
		if err != nil {
			return results, fmt.Errorf("task %d (%s %s): %w", i+1, req.State, req.Path, err)
		}
		Debug("Task %d: changed=%t failed=%t", i+1, result.Changed, result.Failed)
		results = append(results, result)
	}
	return results, nil
}

// runSingle reconciles one request and prints its result.
func runSingle(cmd *cobra.Command, req *guestfs.Request, force bool) error {
	results, err := runRequests(cmd, []*guestfs.Request{req}, force)
	if err != nil {
		return err
	}

	result := results[0]
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if result.Failed {
		return ErrFailed
	}
	return nil
}

// printJSON writes v as JSON, indented when out is a terminal.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// anyFailed reports whether any result has its failed flag set.
func anyFailed(results []*vmrest.Result) bool {
	for _, r := range results {
		if r.Failed {
			return true
		}
	}
	return false
}
