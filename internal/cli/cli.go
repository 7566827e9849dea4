// Package cli provides the cloudesk-cli command-line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/cloudesk/internal/config"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	"github.com/MrSnakeDoc/cloudesk/internal/remote"
	"github.com/MrSnakeDoc/cloudesk/internal/session"
	"github.com/MrSnakeDoc/cloudesk/internal/syncengine"
	"github.com/MrSnakeDoc/cloudesk/internal/utils"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath string
	serverURL  string

	// set by withSession for the running command
	cfg config.Client
	log logger.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "cloudesk-cli",
		Short: "Workspace client with offline cache and cloud sync",
		Long: `Workspace client with offline cache and cloud sync.

Every command works on the local cache first. Changes are pushed to the
server when it is reachable; when the server holds newer data, or refuses
to overwrite a populated workspace with an empty one, the server copy wins
and replaces the local one.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", config.DefaultClientPath(), "path to the client config file")
	root.PersistentFlags().StringVar(&g.serverURL, "server", "", "server URL (overrides the config file)")

	root.AddCommand(
		newStatusCmd(g),
		newPullCmd(g),
		newPushCmd(g),
		newWidgetCmd(g),
		newNavCmd(g),
		newThemeCmd(g),
		newResetCmd(g),
		newBackupCmd(g),
		newWatchCmd(g),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (g *globals) load() (config.Client, logger.Logger, error) {
	cfg, err := config.LoadClient(g.configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	if g.serverURL != "" {
		cfg.ServerURL = g.serverURL
	}

	var log logger.Logger
	if cfg.LogFile != "" {
		log = logger.NewWithFile(cfg.LogLevel, logger.FileOptions{Path: cfg.LogFile})
	} else {
		log = logger.New(cfg.LogLevel, cfg.PrettyLog)
	}
	return cfg, log, nil
}

// withSession opens a session for the duration of fn. Closing it hands
// both snapshots to teardown delivery.
func (g *globals) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session.Session) error) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	g.cfg, g.log = cfg, log

	ctx := cmd.Context()
	s, err := session.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer utils.MustClose(s, log, "session")

	return fn(ctx, s)
}

// withClient runs fn with a bare remote client, for server-side operations
// that do not touch the local cache.
func (g *globals) withClient(cmd *cobra.Command, fn func(ctx context.Context, c *remote.Client) error) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	c, err := remote.NewClient(cfg.ServerURL, remote.Options{Timeout: cfg.RequestTimeout}, log)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), c)
}

// pushAndReport syncs both kinds and prints one line per kind. A rejected
// or failed push is returned as an error.
func pushAndReport(ctx context.Context, w io.Writer, s *session.Session) error {
	if !s.Desktop().CloudInitialized() {
		fmt.Fprintln(w, "offline: changes kept in the local cache")
		return nil
	}

	statuses := s.SyncAll(ctx)
	var failed bool
	for _, kind := range kindNames {
		st := statuses[kind]
		fmt.Fprintf(w, "%-14s %s\n", kind, describe(st))
		if st.State == syncengine.StateError {
			failed = true
		}
	}
	if failed {
		return errors.New("sync did not complete")
	}
	return nil
}
