package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/cloudesk/internal/session"
)

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection, cache and sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				w := cmd.OutOrStdout()

				reach := "online"
				if err := s.Client().Health(ctx); err != nil {
					reach = "offline"
				} else if !s.Desktop().CloudInitialized() {
					reach = "online, started offline: restart to sync"
				}
				fmt.Fprintf(w, "server: %s (%s)\n", s.Client().BaseURL(), reach)

				desk := s.Desktop().Snapshot()
				files := s.Files().Snapshot()
				rows := []struct {
					kind, key, detail string
					updatedAt         int64
				}{
					{kindNames[0], s.Desktop().Key(), fmt.Sprintf("%d widgets, %d sites", len(desk.Widgets), len(desk.NavigationSites)), desk.UpdatedAt},
					{kindNames[1], s.Files().Key(), fmt.Sprintf("%d files, %d folders", len(files.Files), len(files.Folders)), files.UpdatedAt},
				}

				for _, r := range rows {
					rec, cached := s.Cache().GetRecord(ctx, r.key)
					state := "not cached"
					if cached {
						state = "synced"
						if rec.IsDirty {
							state = "unsynced changes"
						}
						state += ", " + size(len(rec.Value))
					}
					fmt.Fprintf(w, "%-14s %s; updated %s; loaded from %s; %s\n",
						r.kind, r.detail, since(r.updatedAt), s.Sources()[r.kind], state)
				}

				pending := s.Cache().DirtyKeys(ctx)
				if len(pending) == 0 {
					fmt.Fprintln(w, "pending: none")
				} else {
					fmt.Fprintf(w, "pending: %s\n", strings.Join(pending, ", "))
				}
				return nil
			})
		},
	}
}
