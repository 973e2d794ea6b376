package game

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/events"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/rules"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/spaces"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/states"
)

// EngineInitializer handles the initialization of a game engine
type EngineInitializer struct {
	config GameConfig
	logger zerolog.Logger
}

// NewEngineInitializer creates a new engine initializer
func NewEngineInitializer(cfg GameConfig) *EngineInitializer {
	return &EngineInitializer{config: cfg}
}

// Initialize creates a new engine in the Uninitialized phase
func (ei *EngineInitializer) Initialize() *Engine {
	ei.setupDefaults()

	engine := ei.createEngine()

	if ei.config.Seed != nil {
		engine.Seed(ei.config.Seed)
	}

	ei.logger.Debug().
		Int("rows", ei.config.Rows).
		Int("columns", ei.config.Columns).
		Bool("seeded", engine.seeded).
		Msg("Engine created")

	return engine
}

// setupDefaults fills in missing configuration
func (ei *EngineInitializer) setupDefaults() {
	if ei.config.Rows <= 0 {
		ei.config.Rows = DefaultRows
	}
	if ei.config.Columns <= 0 {
		ei.config.Columns = DefaultColumns
	}
	if ei.config.GameID == "" {
		ei.config.GameID = uuid.NewString()
	}

	ei.logger = ei.config.Logger.With().
		Str("component", "GameEngine").
		Str("game_id", ei.config.GameID).
		Logger()

	if ei.config.EventBus == nil {
		ei.config.EventBus = events.NewEventBus(ei.config.Logger)
	}
	if ei.config.ExperienceCollector != nil {
		ei.logger.Info().Msg("Experience collection enabled")
	}
}

// createEngine wires the engine components together
func (ei *EngineInitializer) createEngine() *Engine {
	// seeded for real on first reset or by an explicit Seed call
	rng := rand.New(rand.NewSource(0))

	gameContext := states.NewGameContext(ei.config.GameID, ei.config.Rows, ei.config.Columns, ei.logger)
	stateMachine := states.NewStateMachine(gameContext, ei.config.EventBus)

	return &Engine{
		gameID:       ei.config.GameID,
		rows:         ei.config.Rows,
		cols:         ei.config.Columns,
		gs:           newGameState(ei.config.Rows, ei.config.Columns),
		rng:          rng,
		actionSpace:  spaces.NewMaskedDiscrete(NumActions, nil, rng),
		logger:       ei.logger,
		eventBus:     ei.config.EventBus,
		stateMachine: stateMachine,
		legalMoves:   rules.NewLegalMoveCalculator(),
		terminal:     rules.NewTerminalChecker(ei.logger),
		collector:    ei.config.ExperienceCollector,
		renderers:    make(map[RenderMode]Renderer),
	}
}
