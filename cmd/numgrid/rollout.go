package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/NumGridGame/internal/common"
	"github.com/mitchelldurbincs/NumGridGame/internal/config"
	"github.com/mitchelldurbincs/NumGridGame/internal/experience"
	"github.com/mitchelldurbincs/NumGridGame/internal/game"
	"github.com/mitchelldurbincs/NumGridGame/internal/rollout"
	"github.com/mitchelldurbincs/NumGridGame/internal/ui/terminal"
)

var (
	flagEpisodes int
	flagMaxSteps int
	flagRender   string
	flagDump     string
	flagSample   int
)

var rolloutCmd = &cobra.Command{
	Use:   "rollout",
	Short: "Play random episodes",
	Long: `Play episodes with an agent that picks a uniformly random legal move
each step, then print a summary.

Render modes:
  none - no grid output
  ansi - colored grid after every step

With --dump every transition is written as one JSON line. With --sample N,
N transitions drawn at random from the whole run are printed after the
summary.`,
	Args: cobra.NoArgs,
	RunE: runRollout,
}

func init() {
	rolloutCmd.Flags().IntVar(&flagEpisodes, "episodes", 1, "Number of episodes")
	rolloutCmd.Flags().IntVar(&flagMaxSteps, "max-steps", 0, "Truncate episodes after this many steps (0 = never)")
	rolloutCmd.Flags().StringVar(&flagRender, "render", "none", "Render mode: none, ansi")
	rolloutCmd.Flags().StringVar(&flagDump, "dump", "", "Write experiences as JSON lines to this file (default: experience.dump_path)")
	rolloutCmd.Flags().IntVar(&flagSample, "sample", 0, "Print this many randomly sampled transitions")
}

func runRollout(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	var mode game.RenderMode
	switch flagRender {
	case "none", "":
	case string(game.RenderANSI):
		mode = game.RenderANSI
	default:
		return fmt.Errorf("unknown render mode %q", flagRender)
	}

	dumpPath := flagDump
	if dumpPath == "" && cfg.Experience.Enabled {
		dumpPath = cfg.Experience.DumpPath
	}

	var collector *experience.Collector
	if dumpPath != "" || flagSample > 0 {
		collector = experience.NewCollector(experience.NewBuffer(cfg.Experience.BufferCapacity, log.Logger), log.Logger)
	}

	var engine *game.Engine
	if collector != nil {
		engine = newEngine(cfg, collector)
	} else {
		engine = newEngine(cfg, nil)
	}
	defer engine.Close()

	if mode == game.RenderANSI {
		engine.SetRenderer(game.RenderANSI, terminal.NewRenderer(cmd.OutOrStdout(), common.PaletteFromConfig(cfg.Colors)))
	}

	results, runErr := rollout.Run(cmd.Context(), engine, rollout.Options{
		Episodes:   flagEpisodes,
		MaxSteps:   flagMaxSteps,
		RenderMode: mode,
	}, log.Logger)

	s := rollout.Summarize(results)
	fmt.Fprintf(cmd.OutOrStdout(), "episodes %d  mean steps %.1f  max steps %d  mean coverage %.1f%%  best coverage %.1f%%\n",
		s.Episodes, s.MeanSteps, s.MaxSteps, s.MeanCoverage*100, s.BestCoverage*100)

	if flagSample > 0 {
		_, _, seed := gameSettings(cfg)
		printSample(cmd.OutOrStdout(), collector.Buffer(), flagSample, sampleRNG(seed))
	}
	if dumpPath != "" {
		if err := dumpExperiences(collector.Buffer(), dumpPath); err != nil {
			return err
		}
	}
	return runErr
}

// sampleRNG reuses the game seed so a seeded run prints the same sample
func sampleRNG(seed *uint64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
}

func printSample(out io.Writer, buffer *experience.Buffer, n int, rng *rand.Rand) {
	sample := buffer.Sample(n, rng)
	fmt.Fprintf(out, "sampled %d of %d transitions\n", len(sample), buffer.Size())
	for _, exp := range sample {
		fmt.Fprintf(out, "  step %-5d action %d  reward %.1f  done %t\n", exp.Step, exp.Action, exp.Reward, exp.Done)
	}
}

func dumpExperiences(buffer *experience.Buffer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}
	defer f.Close()

	w := experience.NewWriter(f, log.Logger)
	n, err := w.Drain(buffer)
	if err != nil {
		return fmt.Errorf("dump experiences: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	log.Info().Int("experiences", n).Str("path", path).Msg("Experiences written")
	return buffer.Close()
}
