package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/cloudesk/internal/session"
)

func newPullCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Load the server snapshots into the local cache",
		Long: `Load the server snapshots into the local cache.

A populated server snapshot replaces the cached one. When the server slot is
empty only unsynced local changes are kept, and pushed on the next sync; a
cached copy the server already confirmed is dropped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				if !s.Desktop().CloudInitialized() {
					return fmt.Errorf("server %s unreachable, using the local cache", s.Client().BaseURL())
				}
				for _, kind := range kindNames {
					fmt.Fprintf(cmd.OutOrStdout(), "%-14s loaded from %s\n", kind, s.Sources()[kind])
				}
				return nil
			})
		},
	}
}

func newPushCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push unsynced local changes to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				return pushAndReport(ctx, cmd.OutOrStdout(), s)
			})
		},
	}
}
