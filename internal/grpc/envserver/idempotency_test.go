package envserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func stepResponse(step int) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldStep: structpb.NewNumberValue(float64(step)),
	}}
}

func TestIdempotencyManager_CheckAndStore(t *testing.T) {
	im := NewIdempotencyManager(10)

	assert.Nil(t, im.Check("k1"))

	im.Store("k1", stepResponse(2))
	got := im.Check("k1")
	require.NotNil(t, got)
	assert.True(t, proto.Equal(stepResponse(2), got))

	// returned responses are copies
	got.Fields[FieldStep] = structpb.NewNumberValue(99)
	assert.True(t, proto.Equal(stepResponse(2), im.Check("k1")))

	// overwriting keeps a single entry
	im.Store("k1", stepResponse(3))
	assert.Equal(t, 1, im.Len())
	assert.True(t, proto.Equal(stepResponse(3), im.Check("k1")))
}

func TestIdempotencyManager_EmptyKey(t *testing.T) {
	im := NewIdempotencyManager(10)
	im.Store("", stepResponse(2))
	assert.Equal(t, 0, im.Len())
	assert.Nil(t, im.Check(""))
}

func TestIdempotencyManager_Disabled(t *testing.T) {
	im := NewIdempotencyManager(0)
	im.Store("k1", stepResponse(2))
	assert.Nil(t, im.Check("k1"))
}

func TestIdempotencyManager_EvictsOldest(t *testing.T) {
	im := NewIdempotencyManager(2)
	im.Store("a", stepResponse(2))
	im.Store("b", stepResponse(3))
	im.Store("c", stepResponse(4))

	assert.Equal(t, 2, im.Len())
	assert.Nil(t, im.Check("a"))
	assert.NotNil(t, im.Check("b"))
	assert.NotNil(t, im.Check("c"))
}

func TestIdempotencyManager_Expiry(t *testing.T) {
	im := NewIdempotencyManager(10)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	im.now = func() time.Time { return now }

	im.Store("k1", stepResponse(2))
	now = now.Add(idempotencyTTL - time.Second)
	assert.NotNil(t, im.Check("k1"))

	now = now.Add(2 * time.Second)
	assert.Nil(t, im.Check("k1"))
}

func TestIdempotencyManager_Clear(t *testing.T) {
	im := NewIdempotencyManager(10)
	im.Store("a", stepResponse(2))
	im.Store("b", stepResponse(3))

	im.Clear()
	assert.Equal(t, 0, im.Len())
	assert.Nil(t, im.Check("a"))

	// eviction order restarts after clear
	im.Store("c", stepResponse(4))
	assert.Equal(t, 1, im.Len())
}
