package monitoring

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Gauge reports the current value of something the server owns, such as
// the number of live environments.
type Gauge func() int

// Options configures a Monitor
type Options struct {
	CheckInterval time.Duration
	// GoroutineThreshold triggers a warning when exceeded; zero disables it.
	GoroutineThreshold int
	AlertCooldown      time.Duration
}

// DefaultOptions returns the settings used by the server binary
func DefaultOptions() Options {
	return Options{
		CheckInterval:      30 * time.Second,
		GoroutineThreshold: 1000,
		AlertCooldown:      5 * time.Minute,
	}
}

// Monitor periodically samples goroutine count and registered gauges and
// logs them. It warns when the goroutine count points at a leak.
type Monitor struct {
	mu        sync.RWMutex
	opts      Options
	baseline  int
	current   int
	peak      int
	lastAlert time.Time
	gauges    map[string]Gauge
	values    map[string]int

	logger     zerolog.Logger
	goroutines func() int
	now        func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewMonitor creates a monitor. The current goroutine count becomes the baseline.
func NewMonitor(opts Options, logger zerolog.Logger) *Monitor {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultOptions().CheckInterval
	}
	return newMonitor(opts, logger, runtime.NumGoroutine)
}

func newMonitor(opts Options, logger zerolog.Logger, goroutines func() int) *Monitor {
	baseline := goroutines()
	return &Monitor{
		opts:       opts,
		baseline:   baseline,
		current:    baseline,
		peak:       baseline,
		gauges:     make(map[string]Gauge),
		values:     make(map[string]int),
		logger:     logger.With().Str("component", "monitor").Logger(),
		goroutines: goroutines,
		now:        time.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// RegisterGauge adds a named gauge sampled on every check
func (m *Monitor) RegisterGauge(name string, g Gauge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = g
}

// Start begins sampling in the background
func (m *Monitor) Start() {
	go m.run()
	m.logger.Info().
		Int("baseline", m.baseline).
		Dur("interval", m.opts.CheckInterval).
		Msg("Started server monitoring")
}

// Stop ends sampling. Safe to call more than once, but only after Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check()
		case <-m.stop:
			return
		}
	}
}

// Check samples everything once. Reports whether a leak warning was logged.
func (m *Monitor) Check() bool {
	current := m.goroutines()

	m.mu.Lock()
	m.current = current
	if current > m.peak {
		m.peak = current
	}
	for name, g := range m.gauges {
		m.values[name] = g()
	}

	now := m.now()
	alert := m.opts.GoroutineThreshold > 0 &&
		current > m.opts.GoroutineThreshold &&
		(m.lastAlert.IsZero() || now.Sub(m.lastAlert) > m.opts.AlertCooldown)
	if alert {
		m.lastAlert = now
	}

	event := m.logger.Debug().
		Int("goroutines", current).
		Int("baseline", m.baseline).
		Int("peak", m.peak)
	for name, v := range m.values {
		event = event.Int(name, v)
	}
	m.mu.Unlock()
	event.Msg("Server metrics")

	if alert {
		m.logger.Warn().
			Int("goroutines", current).
			Int("threshold", m.opts.GoroutineThreshold).
			Msg("High goroutine count detected - possible leak")
	}
	return alert
}

// Metrics returns the values seen by the last check
func (m *Monitor) Metrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gauges := make(map[string]int, len(m.values))
	for k, v := range m.values {
		gauges[k] = v
	}
	return Metrics{
		Goroutines: m.current,
		Baseline:   m.baseline,
		Peak:       m.peak,
		Growth:     m.current - m.baseline,
		Gauges:     gauges,
	}
}

// GaugeNames returns the registered gauge names in order
func (m *Monitor) GaugeNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.gauges))
	for name := range m.gauges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metrics is a snapshot of the monitored values
type Metrics struct {
	Goroutines int            `json:"goroutines"`
	Baseline   int            `json:"baseline"`
	Peak       int            `json:"peak"`
	Growth     int            `json:"growth"`
	Gauges     map[string]int `json:"gauges"`
}
