package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/NumGridGame/internal/config"
	"github.com/mitchelldurbincs/NumGridGame/internal/ui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the game window",
	Long: `Open a window showing the grid. A random agent plays by default.

Controls:
  Space  - Toggle automatic play
  N      - Single random step
  Click  - Move to a highlighted cell
  R      - Reset
  Esc    - Quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		g := ui.NewUIGame(newEngine(cfg, nil), cfg, log.Logger)
		return ui.Run(g, cfg.UI.Window)
	},
}
