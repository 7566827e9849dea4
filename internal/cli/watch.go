package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/cloudesk/internal/scheduler"
	"github.com/MrSnakeDoc/cloudesk/internal/session"
	"github.com/MrSnakeDoc/cloudesk/internal/syncengine"
)

func newWatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and sync local changes periodically",
		Long: `Stay connected and sync local changes periodically.

Status changes are printed as they happen. On SIGINT or SIGTERM pending
changes are handed to a last delivery attempt before exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				var mu sync.Mutex
				w := cmd.OutOrStdout()
				show := func(kind string) func(syncengine.Status) {
					return func(st syncengine.Status) {
						mu.Lock()
						defer mu.Unlock()
						fmt.Fprintf(w, "%-14s %s\n", kind, describe(st))
					}
				}
				defer s.Desktop().OnStatus(show(kindNames[0]))()
				defer s.Files().OnStatus(show(kindNames[1]))()

				ticker := scheduler.NewSyncTicker(s, g.log.Named("watch"), g.cfg.SyncInterval)
				ticker.Start(ctx)
				fmt.Fprintf(w, "watching %s every %s, Ctrl-C to stop\n", s.Client().BaseURL(), g.cfg.SyncInterval)

				<-ctx.Done()
				ticker.Stop()
				fmt.Fprintln(w, "stopping, delivering pending changes")
				return nil
			})
		},
	}
}
