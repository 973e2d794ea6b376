package experience

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

const (
	defaultBufferCapacity = 10000
	streamBacklog         = 100
)

// ErrBufferClosed is returned by Add after Close
var ErrBufferClosed = errors.New("experience buffer is closed")

// Buffer is a bounded FIFO of experiences. When full, the oldest experience
// is overwritten. Every added experience is also offered to the stream
// channel without blocking.
type Buffer struct {
	mu     sync.RWMutex
	ring   []*Experience
	start  int // index of the oldest experience
	count  int
	closed bool

	stream chan *Experience

	added    int64
	dropped  int64
	streamed int64

	logger zerolog.Logger
}

// NewBuffer creates a buffer holding at most capacity experiences
func NewBuffer(capacity int, logger zerolog.Logger) *Buffer {
	if capacity <= 0 {
		capacity = defaultBufferCapacity
	}
	return &Buffer{
		ring:   make([]*Experience, capacity),
		stream: make(chan *Experience, streamBacklog),
		logger: logger.With().Str("component", "experience_buffer").Logger(),
	}
}

// at maps a logical position (0 = oldest) to a ring index
func (b *Buffer) at(pos int) int {
	return (b.start + pos) % len(b.ring)
}

// Add appends exp, overwriting the oldest experience when full
func (b *Buffer) Add(exp *Experience) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBufferClosed
	}

	if b.count == len(b.ring) {
		b.ring[b.start] = exp
		b.start = b.at(1)
		b.dropped++
		b.logger.Debug().Int64("dropped", b.dropped).Int("step", exp.Step).Msg("Buffer full, overwrote oldest experience")
	} else {
		b.ring[b.at(b.count)] = exp
		b.count++
	}
	b.added++

	select {
	case b.stream <- exp:
		b.streamed++
	default:
		b.logger.Debug().Str("game_id", exp.GameID).Msg("No stream reader keeping up, experience not streamed")
	}
	return nil
}

// Take removes and returns up to n of the oldest experiences
func (b *Buffer) Take(n int) []*Experience {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return []*Experience{}
	}

	out := make([]*Experience, n)
	for i := range out {
		idx := b.at(i)
		out[i] = b.ring[idx]
		b.ring[idx] = nil
	}
	b.start = b.at(n)
	b.count -= n
	return out
}

// Sample draws n distinct experiences uniformly at random without removing them
func (b *Buffer) Sample(n int, rng *rand.Rand) []*Experience {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return []*Experience{}
	}

	// partial Fisher-Yates over logical positions
	positions := make([]int, b.count)
	for i := range positions {
		positions[i] = i
	}
	out := make([]*Experience, n)
	for i := range out {
		j := i + rng.Intn(b.count-i)
		positions[i], positions[j] = positions[j], positions[i]
		out[i] = b.ring[b.at(positions[i])]
	}
	return out
}

// StreamChannel receives every experience added while a reader keeps up.
// It is closed by Close.
func (b *Buffer) StreamChannel() <-chan *Experience {
	return b.stream
}

// Size returns the number of buffered experiences
func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Close rejects further adds and closes the stream channel. Calling Close
// again is a no-op.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.stream)

	b.logger.Debug().
		Int64("added", b.added).
		Int64("dropped", b.dropped).
		Int64("streamed", b.streamed).
		Msg("Buffer closed")
	return nil
}

// BufferStats describes a buffer's lifetime counters
type BufferStats struct {
	CurrentSize   int
	Capacity      int
	TotalAdded    int64
	TotalDropped  int64
	TotalStreamed int64
}

// Stats returns a snapshot of the buffer counters
func (b *Buffer) Stats() BufferStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return BufferStats{
		CurrentSize:   b.count,
		Capacity:      len(b.ring),
		TotalAdded:    b.added,
		TotalDropped:  b.dropped,
		TotalStreamed: b.streamed,
	}
}

// BufferManager keeps one buffer per environment id
type BufferManager struct {
	mu       sync.RWMutex
	buffers  map[string]*Buffer
	capacity int
	logger   zerolog.Logger
}

// NewBufferManager creates a manager whose buffers hold capacity experiences
func NewBufferManager(capacity int, logger zerolog.Logger) *BufferManager {
	return &BufferManager{
		buffers:  make(map[string]*Buffer),
		capacity: capacity,
		logger:   logger.With().Str("component", "buffer_manager").Logger(),
	}
}

// GetOrCreateBuffer returns the buffer for key, creating it on first use
func (m *BufferManager) GetOrCreateBuffer(key string) *Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.buffers[key]; ok {
		return b
	}
	b := NewBuffer(m.capacity, m.logger)
	m.buffers[key] = b
	m.logger.Debug().Str("env_id", key).Int("capacity", len(b.ring)).Msg("Created experience buffer")
	return b
}

// RemoveBuffer closes and forgets the buffer for key. Unknown keys are ignored.
func (m *BufferManager) RemoveBuffer(key string) error {
	m.mu.Lock()
	b, ok := m.buffers[key]
	delete(m.buffers, key)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	stats := b.Stats()
	m.logger.Debug().
		Str("env_id", key).
		Int64("added", stats.TotalAdded).
		Int64("dropped", stats.TotalDropped).
		Msg("Removed experience buffer")
	return b.Close()
}

// GetAllBuffers returns a copy of the key to buffer map
func (m *BufferManager) GetAllBuffers() map[string]*Buffer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*Buffer, len(m.buffers))
	for k, b := range m.buffers {
		out[k] = b
	}
	return out
}

// CloseAll closes and forgets every buffer
func (m *BufferManager) CloseAll() error {
	m.mu.Lock()
	buffers := m.buffers
	m.buffers = make(map[string]*Buffer)
	m.mu.Unlock()

	var errs []error
	for key, b := range buffers {
		if err := b.Close(); err != nil {
			m.logger.Error().Err(err).Str("env_id", key).Msg("Failed to close experience buffer")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
