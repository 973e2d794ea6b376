package terminal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/NumGridGame/internal/common"
	"github.com/mitchelldurbincs/NumGridGame/internal/game"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
	"github.com/mitchelldurbincs/NumGridGame/internal/testutil"
)

func TestRenderer_Render(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, common.DefaultPalette())

	frame := game.Frame{
		Grid:    [][]int{{1, 2, 0}, {0, 0, 0}},
		Current: core.NewCoordinate(0, 1),
		Legal:   []core.Coordinate{{Row: 1, Col: 2}},
		Step:    2,
	}
	require.NoError(t, r.Render(frame))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "step 2")
	assert.Contains(t, lines[0], "legal 1")
	assert.Contains(t, lines[1], "#")
	assert.Contains(t, lines[1], "@")
	assert.Contains(t, lines[2], "+")
	assert.NotContains(t, lines[2], "@")
}

func TestRenderer_Close(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, common.DefaultPalette())

	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
	assert.Error(t, r.Render(game.Frame{}))
}

func TestRenderer_WithEngine(t *testing.T) {
	var out bytes.Buffer
	e := game.NewEngine(game.GameConfig{Rows: 4, Columns: 4, Seed: testutil.Seed(1), Logger: testutil.NopLogger()})
	e.SetRenderer(game.RenderANSI, NewRenderer(&out, common.DefaultPalette()))

	e.Reset()
	require.NoError(t, e.Render(game.RenderANSI))
	require.NoError(t, e.Close())

	assert.Contains(t, out.String(), "step 1")
	assert.Equal(t, 1, strings.Count(out.String(), "@"))
}
