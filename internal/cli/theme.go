package cli

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/cloudesk/internal/domain"
)

func newThemeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:       "theme <light|dark|system>",
		Short:     "Set the desktop theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.ThemeLight), string(domain.ThemeDark), string(domain.ThemeSystem)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := domain.ThemeMode(args[0])
			// validate before opening anything
			if err := domain.NewDesktop().SetTheme(mode); err != nil {
				return err
			}
			return mutateDesktop(cmd, g, func(d *domain.Desktop, _ int64) error {
				return d.SetTheme(mode)
			})
		},
	}
}
