package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/cloudesk/internal/domain"
	"github.com/MrSnakeDoc/cloudesk/internal/sources/navconfig"
)

func newNavCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nav",
		Short: "Manage navigation sites",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Merge navigation sites from a navConfig or Homepage services file",
		Long: `Merge navigation sites from a YAML file.

Sites whose URL is already present are skipped. Group names become
categories.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := navconfig.NewLoader(args[0]).Load()
			if err != nil {
				return err
			}
			sites, err := file.Sites()
			if err != nil {
				return err
			}

			added := 0
			err = mutateDesktop(cmd, g, func(d *domain.Desktop, _ int64) error {
				added = d.MergeNavigation(sites)
				return nil
			})
			fmt.Fprintf(cmd.OutOrStdout(), "added %d of %d sites\n", added, len(sites))
			return err
		},
	})
	return cmd
}
