// numgrid runs the grid-filling environment locally or against a server.
//
// Usage:
//
//	numgrid rollout          - Play random episodes in the terminal
//	numgrid ui               - Watch or play episodes in a window
//	numgrid remote           - Play random episodes on a grpc_server
//
// Global flags:
//
//	--config <path>  - Config file (default: ./config.yaml, /etc/numgrid/config.yaml)
//	--rows, --cols   - Grid size (0 = config default)
//	--seed <value>   - RNG seed (-1 = config default, then clock)
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/NumGridGame/internal/config"
	"github.com/mitchelldurbincs/NumGridGame/internal/game"
)

var (
	// Global flags
	flagConfig   string
	flagEnv      string
	flagLogLevel string
	flagRows     int
	flagCols     int
	flagSeed     int64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "numgrid",
	Short: "NumGrid - a grid-filling reinforcement learning environment",
	Long: `NumGrid places a marker on a grid and lets an agent jump it around with
nine fixed moves. Every visited cell fills up; the episode ends when no move
lands on an empty cell.

Examples:
  numgrid rollout --episodes 5 --render ansi
  numgrid rollout --dump experiences.jsonl
  numgrid ui --rows 12 --cols 12
  numgrid remote --addr localhost:50051`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(flagConfig); err != nil {
			return err
		}
		if flagEnv != "" {
			if err := config.LoadEnvironmentConfig(flagEnv); err != nil {
				return err
			}
		}
		cfg := config.Get()
		level := flagLogLevel
		if level == "" {
			level = cfg.Logging.Level
		}
		if cfg.Development.VerboseLogging {
			level = "debug"
		}
		setupLogging(level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "Environment overlay to merge (e.g. production)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (empty to use config default)")
	rootCmd.PersistentFlags().IntVar(&flagRows, "rows", 0, "Grid rows (0 = config default)")
	rootCmd.PersistentFlags().IntVar(&flagCols, "cols", 0, "Grid columns (0 = config default)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", -1, "RNG seed (-1 = config default)")

	rootCmd.AddCommand(rolloutCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(remoteCmd)
}

// gameSettings merges the global flags over the loaded config
func gameSettings(cfg *config.Config) (rows, cols int, seed *uint64) {
	g := cfg.Game
	if flagRows > 0 {
		g.Rows = flagRows
	}
	if flagCols > 0 {
		g.Columns = flagCols
	}
	if flagSeed >= 0 {
		g.Seed = flagSeed
	}
	return g.Rows, g.Columns, g.SeedValue()
}

func newEngine(cfg *config.Config, collector game.ExperienceCollector) *game.Engine {
	rows, cols, seed := gameSettings(cfg)
	return game.NewEngine(game.GameConfig{
		Rows:                rows,
		Columns:             cols,
		Seed:                seed,
		Logger:              log.Logger,
		ExperienceCollector: collector,
	})
}

func setupLogging(level, format string) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// stdout belongs to the rendered grid
	if format == "json" || os.Getenv("APP_ENV") == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}
}
