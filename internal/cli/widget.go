package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/cloudesk/internal/domain"
	"github.com/MrSnakeDoc/cloudesk/internal/session"
)

func newWidgetCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "widget",
		Short: "Create, move, list and delete desktop widgets",
	}
	cmd.AddCommand(newWidgetAddCmd(g), newWidgetRmCmd(g), newWidgetMoveCmd(g), newWidgetListCmd(g))
	return cmd
}

// mutateDesktop applies fn and pushes the result.
func mutateDesktop(cmd *cobra.Command, g *globals, fn func(d *domain.Desktop, now int64) error) error {
	return g.withSession(cmd, func(ctx context.Context, s *session.Session) error {
		now := domain.Millis(time.Now())
		if err := s.Desktop().Mutate(func(d *domain.Desktop) error { return fn(d, now) }); err != nil {
			return err
		}
		return pushAndReport(ctx, cmd.OutOrStdout(), s)
	})
}

func newWidgetAddCmd(g *globals) *cobra.Command {
	var (
		kind    string
		title   string
		content string
		color   string
		src     string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a widget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var created domain.Widget
			err := mutateDesktop(cmd, g, func(d *domain.Desktop, now int64) error {
				w, err := d.CreateWidget(domain.CreateParams{
					Type:    domain.WidgetKind(kind),
					Title:   title,
					Content: content,
					Color:   color,
					Src:     src,
				}, now)
				created = w
				return err
			})
			if created.ID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", created.Type, created.ID, created.Title)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&kind, "type", string(domain.KindNote), "widget kind: note, todo, bookmark, folder, text, image, markdown")
	cmd.Flags().StringVar(&title, "title", "", "title (generated when empty)")
	cmd.Flags().StringVar(&content, "content", "", "initial content of note, text and markdown widgets")
	cmd.Flags().StringVar(&color, "color", "", "note colour")
	cmd.Flags().StringVar(&src, "src", "", "image source URL")
	return cmd
}

func newWidgetRmCmd(g *globals) *cobra.Command {
	var withChildren bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a widget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateDesktop(cmd, g, func(d *domain.Desktop, _ int64) error {
				if withChildren {
					return d.DeleteFolderWithChildren(args[0])
				}
				return d.DeleteWidget(args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&withChildren, "with-children", false, "also delete the widgets inside a folder")
	return cmd
}

func newWidgetMoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <x> <y>",
		Short: "Move a widget",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid x %q: %w", args[1], err)
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid y %q: %w", args[2], err)
			}
			return mutateDesktop(cmd, g, func(d *domain.Desktop, now int64) error {
				return d.UpdatePosition(args[0], x, y, now)
			})
		},
	}
}

func newWidgetListCmd(g *globals) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List widgets, back to front",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(ctx context.Context, s *session.Session) error {
				doc := s.Desktop().Snapshot()
				widgets := doc.SortedWidgets()
				if query != "" {
					widgets = doc.Search(query)
				}
				if len(widgets) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No widgets.")
					return nil
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tPOSITION\tUPDATED")
				for _, w := range widgets {
					pos := fmt.Sprintf("%.0f,%.0f", w.X, w.Y)
					if w.IsMinimized {
						pos = "minimized"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", w.ID, w.Type, w.Title, pos, since(w.UpdatedAt))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&query, "search", "", "only widgets matching this text")
	return cmd
}
