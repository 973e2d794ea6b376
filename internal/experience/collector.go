package experience

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/NumGridGame/internal/game"
)

// maxEpisodeSummaries bounds how many finished episodes a collector remembers
const maxEpisodeSummaries = 100

// Collector turns engine transitions into experiences and stores them in a Buffer
type Collector struct {
	buffer *Buffer
	logger zerolog.Logger

	mu        sync.Mutex
	collected int64
	failed    int64
	episodes  []game.EpisodeSummary
}

var _ game.ExperienceCollector = (*Collector)(nil)

// NewCollector creates a collector writing into buffer
func NewCollector(buffer *Buffer, logger zerolog.Logger) *Collector {
	return &Collector{
		buffer: buffer,
		logger: logger.With().Str("component", "experience_collector").Logger(),
	}
}

// OnTransition collects one experience per successful step
func (c *Collector) OnTransition(t game.Transition) {
	exp := &Experience{
		ID:             uuid.New().String(),
		GameID:         t.GameID,
		Step:           t.Step,
		State:          t.State,
		Action:         t.Action,
		Reward:         t.Reward,
		NextState:      t.NextState,
		Done:           t.Done,
		ActionMask:     t.ActionMask,
		NextActionMask: t.NextActionMask,
		CollectedAt:    time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.buffer.Add(exp); err != nil {
		c.failed++
		c.logger.Warn().Err(err).Str("game_id", t.GameID).Msg("Dropping experience")
		return
	}
	c.collected++

	c.logger.Debug().
		Str("experience_id", exp.ID).
		Int("step", t.Step).
		Int("action", t.Action).
		Bool("done", t.Done).
		Msg("Collected experience")
}

// OnEpisodeEnd records the episode summary
func (c *Collector) OnEpisodeEnd(summary game.EpisodeSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.episodes = append(c.episodes, summary)
	if over := len(c.episodes) - maxEpisodeSummaries; over > 0 {
		c.episodes = append(c.episodes[:0], c.episodes[over:]...)
	}
	c.logger.Info().
		Str("game_id", summary.GameID).
		Int("steps", summary.Steps).
		Float64("coverage", summary.Coverage).
		Int64("total_experiences", c.collected).
		Msg("Episode ended, experiences collected")
}

// Buffer returns the buffer experiences are written to
func (c *Collector) Buffer() *Buffer {
	return c.buffer
}

// GetExperienceCount returns how many experiences were stored
func (c *Collector) GetExperienceCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collected
}

// Episodes returns the most recent finished episode summaries, oldest first
func (c *Collector) Episodes() []game.EpisodeSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]game.EpisodeSummary, len(c.episodes))
	copy(result, c.episodes)
	return result
}
