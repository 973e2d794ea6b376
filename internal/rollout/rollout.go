package rollout

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/NumGridGame/internal/game"
)

// Options controls a random-agent rollout
type Options struct {
	Episodes int
	// MaxSteps bounds one episode; zero means run until terminal.
	MaxSteps int
	// RenderMode is rendered after every reset and step when set.
	RenderMode game.RenderMode
}

// EpisodeResult is the outcome of one episode
type EpisodeResult struct {
	Episode     int
	Steps       int
	TotalReward float64
	Coverage    float64
	Truncated   bool
}

// Run plays opts.Episodes episodes with a uniformly random legal action
// each step. It stops early when ctx is cancelled and returns the episodes
// finished so far.
func Run(ctx context.Context, engine *game.Engine, opts Options, logger zerolog.Logger) ([]EpisodeResult, error) {
	logger = logger.With().Str("component", "rollout").Str("game_id", engine.GameID()).Logger()
	results := make([]EpisodeResult, 0, opts.Episodes)

	for ep := 1; ep <= opts.Episodes; ep++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := runEpisode(ctx, engine, opts)
		res.Episode = ep
		if err != nil {
			return results, fmt.Errorf("episode %d: %w", ep, err)
		}
		results = append(results, res)

		logger.Info().
			Int("episode", ep).
			Int("steps", res.Steps).
			Float64("reward", res.TotalReward).
			Float64("coverage", res.Coverage).
			Bool("truncated", res.Truncated).
			Msg("Episode finished")
	}
	return results, nil
}

func runEpisode(ctx context.Context, engine *game.Engine, opts Options) (EpisodeResult, error) {
	engine.Reset()
	if err := render(engine, opts.RenderMode); err != nil {
		return EpisodeResult{}, err
	}

	var res EpisodeResult
	for !engine.IsTerminal() {
		if opts.MaxSteps > 0 && res.Steps >= opts.MaxSteps {
			res.Truncated = true
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		action, err := engine.ActionSpace().Sample()
		if err != nil {
			return res, err
		}
		step, err := engine.Step(action)
		if err != nil {
			return res, err
		}
		res.Steps++
		res.TotalReward += step.Reward

		if err := render(engine, opts.RenderMode); err != nil {
			return res, err
		}
	}

	res.Coverage = engine.Stats().Coverage
	return res, nil
}

func render(engine *game.Engine, mode game.RenderMode) error {
	if mode == "" {
		return nil
	}
	return engine.Render(mode)
}

// Summary aggregates a set of episode results
type Summary struct {
	Episodes     int
	MeanSteps    float64
	MaxSteps     int
	MeanCoverage float64
	BestCoverage float64
}

// Summarize aggregates results. An empty slice yields the zero Summary.
func Summarize(results []EpisodeResult) Summary {
	if len(results) == 0 {
		return Summary{}
	}
	s := Summary{Episodes: len(results)}
	var steps int
	var coverage float64
	for _, r := range results {
		steps += r.Steps
		coverage += r.Coverage
		if r.Steps > s.MaxSteps {
			s.MaxSteps = r.Steps
		}
		if r.Coverage > s.BestCoverage {
			s.BestCoverage = r.Coverage
		}
	}
	s.MeanSteps = float64(steps) / float64(len(results))
	s.MeanCoverage = coverage / float64(len(results))
	return s
}
