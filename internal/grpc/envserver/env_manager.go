package envserver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/NumGridGame/internal/experience"
	"github.com/mitchelldurbincs/NumGridGame/internal/game"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/events"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/events/subscribers"
)

var (
	// ErrEnvNotFound is returned for unknown environment ids
	ErrEnvNotFound = errors.New("environment not found")
	// ErrAtCapacity is returned when max_envs environments already exist
	ErrAtCapacity = errors.New("server at capacity")
	// ErrGridTooLarge is returned when rows*columns exceeds MaxCells
	ErrGridTooLarge = errors.New("grid too large")
)

// ManagerConfig configures an EnvManager
type ManagerConfig struct {
	MaxEnvs              int
	MaxCells             int // rows*columns limit per env; zero disables it
	DefaultRows          int
	DefaultColumns       int
	IdleTimeout          time.Duration // zero disables idle cleanup
	CleanupInterval      time.Duration
	IdempotencyCacheSize int
	CollectExperiences   bool
	BufferCapacity       int
	LogEvents            bool
}

// envInstance is one engine plus the state the server keeps for it. mu
// serializes every call on the engine.
type envInstance struct {
	id     string
	engine *game.Engine
	mu     sync.Mutex

	createdAt    time.Time
	lastActivity time.Time

	idempotency *IdempotencyManager
	buffer      *experience.Buffer
	collector   *experience.Collector
}

func (e *envInstance) touch(now time.Time) {
	e.lastActivity = now
}

// EnvManager owns every live environment
type EnvManager struct {
	mu      sync.RWMutex
	envs    map[string]*envInstance
	cfg     ManagerConfig
	buffers *experience.BufferManager
	logger  zerolog.Logger
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewEnvManager creates a manager. Call Start to run idle cleanup.
func NewEnvManager(cfg ManagerConfig, logger zerolog.Logger) *EnvManager {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	return &EnvManager{
		envs:    make(map[string]*envInstance),
		cfg:     cfg,
		buffers: experience.NewBufferManager(cfg.BufferCapacity, logger),
		logger:  logger.With().Str("component", "env_manager").Logger(),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// CreateEnv builds a new engine. Non-positive dimensions fall back to the
// manager defaults; grids above MaxCells are rejected before any allocation.
func (m *EnvManager) CreateEnv(rows, cols int, seed *uint64) (*envInstance, error) {
	if rows <= 0 {
		rows = m.cfg.DefaultRows
	}
	if cols <= 0 {
		cols = m.cfg.DefaultColumns
	}
	if err := m.checkGridSize(rows, cols); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := m.now()
	env := &envInstance{
		id:           id,
		createdAt:    now,
		lastActivity: now,
		idempotency:  NewIdempotencyManager(m.cfg.IdempotencyCacheSize),
	}

	logger := m.logger.With().Str("env_id", id).Logger()
	bus := events.NewEventBus(logger)
	if m.cfg.LogEvents {
		bus.Subscribe(subscribers.NewLoggerSubscriber("env-log-"+id, logger, zerolog.DebugLevel))
	}

	engineCfg := game.GameConfig{
		Rows:     rows,
		Columns:  cols,
		Seed:     seed,
		GameID:   id,
		Logger:   logger,
		EventBus: bus,
	}
	registered := false
	if m.cfg.CollectExperiences {
		env.buffer = m.buffers.GetOrCreateBuffer(id)
		env.collector = experience.NewCollector(env.buffer, logger)
		engineCfg.ExperienceCollector = env.collector
		// also runs if NewEngine panics
		defer func() {
			if !registered {
				_ = m.buffers.RemoveBuffer(id)
			}
		}()
	}
	// the grid is allocated here, outside the manager lock
	env.engine = game.NewEngine(engineCfg)

	if err := m.register(env); err != nil {
		return nil, err
	}
	registered = true

	m.logger.Info().
		Str("env_id", id).
		Int("rows", rows).
		Int("columns", cols).
		Bool("collect_experiences", env.buffer != nil).
		Msg("Created environment")

	return env, nil
}

// checkGridSize rejects grids with more than MaxCells cells
func (m *EnvManager) checkGridSize(rows, cols int) error {
	if m.cfg.MaxCells <= 0 {
		return nil
	}
	if int64(rows)*int64(cols) > int64(m.cfg.MaxCells) {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrGridTooLarge, rows, cols, m.cfg.MaxCells)
	}
	return nil
}

// register adds env unless max_envs environments are already live
func (m *EnvManager) register(env *envInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.envs)
	if m.cfg.MaxEnvs > 0 && count >= m.cfg.MaxEnvs {
		m.logger.Warn().
			Int("current_envs", count).
			Int("max_envs", m.cfg.MaxEnvs).
			Msg("Rejecting env creation - server at capacity")
		return fmt.Errorf("%w: %d/%d environments active", ErrAtCapacity, count, m.cfg.MaxEnvs)
	}
	m.envs[env.id] = env
	return nil
}

// GetEnv looks up an environment by id
func (m *EnvManager) GetEnv(id string) (*envInstance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	env, ok := m.envs[id]
	return env, ok
}

// CloseEnv removes an environment and releases its engine and buffer
func (m *EnvManager) CloseEnv(id string) error {
	m.mu.Lock()
	env, ok := m.envs[id]
	if ok {
		delete(m.envs, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrEnvNotFound, id)
	}
	m.release(env, "closed by client")
	return nil
}

func (m *EnvManager) release(env *envInstance, reason string) {
	env.mu.Lock()
	if err := env.engine.Close(); err != nil {
		m.logger.Warn().Err(err).Str("env_id", env.id).Msg("Failed to close engine")
	}
	env.mu.Unlock()

	if env.buffer != nil {
		if err := m.buffers.RemoveBuffer(env.id); err != nil {
			m.logger.Warn().Err(err).Str("env_id", env.id).Msg("Failed to remove buffer")
		}
	}

	m.logger.Info().
		Str("env_id", env.id).
		Str("reason", reason).
		Dur("age", m.now().Sub(env.createdAt)).
		Msg("Released environment")
}

// Count returns the number of live environments
func (m *EnvManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.envs)
}

// BufferedExperiences returns how many experiences the live buffers hold
func (m *EnvManager) BufferedExperiences() int {
	total := 0
	for _, b := range m.buffers.GetAllBuffers() {
		total += b.Size()
	}
	return total
}

// Start runs idle cleanup in the background until Stop
func (m *EnvManager) Start() {
	if m.cfg.IdleTimeout <= 0 {
		return
	}
	m.wg.Add(1)
	go m.runCleanup()
}

// Stop ends idle cleanup and releases every environment
func (m *EnvManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.wg.Wait()

		m.mu.Lock()
		envs := m.envs
		m.envs = make(map[string]*envInstance)
		m.mu.Unlock()

		for _, env := range envs {
			m.release(env, "server shutdown")
		}
		_ = m.buffers.CloseAll()
	})
}

func (m *EnvManager) runCleanup() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupIdle()
		case <-m.stop:
			return
		}
	}
}

// cleanupIdle removes environments untouched for longer than IdleTimeout.
// Returns how many were removed.
func (m *EnvManager) cleanupIdle() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}

	// Phase 1: collect references without holding env locks
	m.mu.RLock()
	refs := make([]*envInstance, 0, len(m.envs))
	for _, env := range m.envs {
		refs = append(refs, env)
	}
	m.mu.RUnlock()

	// Phase 2: check each env independently
	now := m.now()
	var idle []*envInstance
	for _, env := range refs {
		env.mu.Lock()
		inactive := now.Sub(env.lastActivity)
		env.mu.Unlock()
		if inactive > m.cfg.IdleTimeout {
			idle = append(idle, env)
		}
	}

	// Phase 3: remove with a fresh lock, then release outside it
	var removed []*envInstance
	m.mu.Lock()
	for _, env := range idle {
		if current, ok := m.envs[env.id]; ok && current == env {
			delete(m.envs, env.id)
			removed = append(removed, env)
		}
	}
	remaining := len(m.envs)
	m.mu.Unlock()

	for _, env := range removed {
		m.release(env, "idle timeout")
	}

	if len(removed) > 0 {
		m.logger.Info().
			Int("cleaned", len(removed)).
			Int("remaining", remaining).
			Msg("Env cleanup completed")
	}
	return len(removed)
}
