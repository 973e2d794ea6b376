package envserver

import (
	"sync"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const idempotencyTTL = 24 * time.Hour

// idempotencyEntry stores a cached response with timestamp
type idempotencyEntry struct {
	response  *structpb.Struct
	createdAt time.Time
}

// IdempotencyManager caches step responses of one environment by key.
// The oldest entry is evicted once the cache holds maxEntries.
type IdempotencyManager struct {
	mu         sync.Mutex
	cache      map[string]*idempotencyEntry
	order      []string
	maxEntries int
	now        func() time.Time
}

// NewIdempotencyManager creates a new idempotency manager. A non-positive
// maxEntries disables caching.
func NewIdempotencyManager(maxEntries int) *IdempotencyManager {
	return &IdempotencyManager{
		cache:      make(map[string]*idempotencyEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Check returns a copy of the cached response for key, or nil
func (im *IdempotencyManager) Check(key string) *structpb.Struct {
	if key == "" {
		return nil
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	entry, exists := im.cache[key]
	if !exists {
		return nil
	}
	if im.now().Sub(entry.createdAt) > idempotencyTTL {
		return nil
	}
	return proto.Clone(entry.response).(*structpb.Struct)
}

// Store caches resp under key
func (im *IdempotencyManager) Store(key string, resp *structpb.Struct) {
	if key == "" || im.maxEntries <= 0 {
		return
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	if _, exists := im.cache[key]; !exists {
		im.order = append(im.order, key)
	}
	im.cache[key] = &idempotencyEntry{
		response:  proto.Clone(resp).(*structpb.Struct),
		createdAt: im.now(),
	}

	for len(im.order) > im.maxEntries {
		oldest := im.order[0]
		im.order = im.order[1:]
		delete(im.cache, oldest)
	}
}

// Clear drops every cached response. Called when the episode restarts.
func (im *IdempotencyManager) Clear() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.cache = make(map[string]*idempotencyEntry)
	im.order = nil
}

// Len returns the number of cached responses
func (im *IdempotencyManager) Len() int {
	im.mu.Lock()
	defer im.mu.Unlock()
	return len(im.cache)
}
