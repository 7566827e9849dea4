package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/remote"
)

func lookupKind(name string) (guard.Kind, error) {
	k, ok := guard.Lookup(name)
	if !ok {
		return guard.Kind{}, fmt.Errorf("unknown kind %q (want desktop or file-metadata)", name)
	}
	return k, nil
}

func newBackupCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "List, run and restore server-side backups",
	}

	var kind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := lookupKind(kind)
			if err != nil {
				return err
			}
			return g.withClient(cmd, func(ctx context.Context, c *remote.Client) error {
				backups, err := c.ListBackups(ctx, k)
				if err != nil {
					return err
				}
				if len(backups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No backups.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tSIZE\tCREATED")
				for _, b := range backups {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name, humanize.Bytes(uint64(max(b.Size, 0))), humanize.Time(b.CreatedAt))
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().StringVar(&kind, "kind", guard.Desktop.Name, "desktop or file-metadata")

	run := &cobra.Command{
		Use:   "run",
		Short: "Ask the server for an immediate backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withClient(cmd, func(ctx context.Context, c *remote.Client) error {
				if err := c.TriggerBackup(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "backup queued")
				return nil
			})
		},
	}

	restore := &cobra.Command{
		Use:   "restore <kind> <name>",
		Short: "Replace the server snapshot with a backup",
		Long: `Replace the server snapshot with a backup.

The restore is not subject to conflict checks. Other clients pick it up the
next time they start, or adopt it when their next push is refused.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := lookupKind(args[0])
			if err != nil {
				return err
			}
			return g.withClient(cmd, func(ctx context.Context, c *remote.Client) error {
				if err := c.RestoreBackup(ctx, k, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s restored from %s\n", k.Name, args[1])
				return nil
			})
		},
	}

	cmd.AddCommand(list, run, restore)
	return cmd
}
