package monitoring

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeCounter struct {
	n int
}

func (f *fakeCounter) count() int { return f.n }

func TestMonitor_CheckTracksPeakAndGauges(t *testing.T) {
	counter := &fakeCounter{n: 10}
	m := newMonitor(Options{CheckInterval: time.Second}, zerolog.Nop(), counter.count)

	envs := 3
	m.RegisterGauge("envs", func() int { return envs })
	m.RegisterGauge("buffered", func() int { return 42 })

	counter.n = 25
	assert.False(t, m.Check())
	counter.n = 15
	envs = 1
	m.Check()

	metrics := m.Metrics()
	assert.Equal(t, 15, metrics.Goroutines)
	assert.Equal(t, 10, metrics.Baseline)
	assert.Equal(t, 25, metrics.Peak)
	assert.Equal(t, 5, metrics.Growth)
	assert.Equal(t, map[string]int{"envs": 1, "buffered": 42}, metrics.Gauges)
	assert.Equal(t, []string{"buffered", "envs"}, m.GaugeNames())
}

func TestMonitor_AlertCooldown(t *testing.T) {
	var buf bytes.Buffer
	counter := &fakeCounter{n: 5}
	m := newMonitor(Options{
		CheckInterval:      time.Second,
		GoroutineThreshold: 100,
		AlertCooldown:      time.Minute,
	}, zerolog.New(&buf), counter.count)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	assert.False(t, m.Check(), "below threshold")

	counter.n = 150
	assert.True(t, m.Check())
	assert.Contains(t, buf.String(), "possible leak")

	now = now.Add(30 * time.Second)
	assert.False(t, m.Check(), "still cooling down")

	now = now.Add(time.Minute)
	assert.True(t, m.Check())
}

func TestMonitor_ThresholdDisabled(t *testing.T) {
	counter := &fakeCounter{n: 5000}
	m := newMonitor(Options{CheckInterval: time.Second}, zerolog.Nop(), counter.count)
	assert.False(t, m.Check())
}

func TestMonitor_StartStop(t *testing.T) {
	m := NewMonitor(Options{CheckInterval: 5 * time.Millisecond}, zerolog.Nop())
	calls := make(chan struct{}, 100)
	m.RegisterGauge("ticks", func() int {
		select {
		case calls <- struct{}{}:
		default:
		}
		return 1
	})

	m.Start()
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("monitor never sampled")
	}
	m.Stop()
	m.Stop()
	assert.Equal(t, 1, m.Metrics().Gauges["ticks"])
}
