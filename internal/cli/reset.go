package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/cloudesk/internal/session"
	"github.com/MrSnakeDoc/cloudesk/internal/syncengine"
)

func newResetCmd(g *globals) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the workspace on the server and in the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every widget, site and file entry; re-run with --yes")
			}
			return g.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				w := cmd.OutOrStdout()
				desk := s.Desktop().Reset(ctx)
				files := s.Files().Reset(ctx)
				fmt.Fprintf(w, "%-14s %s\n", kindNames[0], describe(desk))
				fmt.Fprintf(w, "%-14s %s\n", kindNames[1], describe(files))
				if desk.State == syncengine.StateError || files.State == syncengine.StateError {
					return errors.New("reset incomplete")
				}
				// drop records of any other key too
				s.Cache().Clear(ctx)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
