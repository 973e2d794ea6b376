package experience

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/spaces"
)

const (
	// Channel indices for tensor representation
	ChannelEmpty   = 0
	ChannelFilled  = 1
	ChannelCurrent = 2
	NumChannels    = 3
)

// Serializer converts grids and experiences to tensor and wire forms
type Serializer struct{}

// NewSerializer creates a new state serializer
func NewSerializer() *Serializer {
	return &Serializer{}
}

// StateToTensor one-hot encodes a grid. Layout is [channel][row][col].
// Unknown cell values leave every channel at zero.
func (s *Serializer) StateToTensor(grid [][]int) []float32 {
	rows, cols := shape(grid)
	tensor := make([]float32, NumChannels*rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols && c < len(grid[r]); c++ {
			state := core.CellState(grid[r][c])
			if !state.IsValid() {
				continue
			}
			tensor[s.getChannelIndex(int(state), r, c, rows, cols)] = 1.0
		}
	}
	return tensor
}

// TensorToState inverts StateToTensor. Cells with no hot channel decode as empty.
func (s *Serializer) TensorToState(tensor []float32, rows, cols int) ([][]int, error) {
	if len(tensor) != NumChannels*rows*cols {
		return nil, fmt.Errorf("tensor has %d values, want %d for %dx%d", len(tensor), NumChannels*rows*cols, rows, cols)
	}
	grid := make([][]int, rows)
	for r := 0; r < rows; r++ {
		grid[r] = make([]int, cols)
		for c := 0; c < cols; c++ {
			for ch := NumChannels - 1; ch > 0; ch-- {
				if tensor[s.getChannelIndex(ch, r, c, rows, cols)] > 0.5 {
					grid[r][c] = ch
					break
				}
			}
		}
	}
	return grid, nil
}

// getChannelIndex calculates the index in the flattened tensor for a specific channel and position
func (s *Serializer) getChannelIndex(channel, row, col, rows, cols int) int {
	return channel*rows*cols + row*cols + col
}

// GetTensorShape returns the shape of the tensor representation
func (s *Serializer) GetTensorShape(rows, cols int) []int32 {
	return []int32{NumChannels, int32(rows), int32(cols)}
}

// ToStruct converts an experience into a protobuf Struct for the wire
func (s *Serializer) ToStruct(exp *Experience) (*structpb.Struct, error) {
	rows, cols := shape(exp.State)
	fields := map[string]any{
		"experience_id":    exp.ID,
		"game_id":          exp.GameID,
		"step":             exp.Step,
		"action":           exp.Action,
		"reward":           exp.Reward,
		"done":             exp.Done,
		"state":            s.tensorValue(exp.State, rows, cols),
		"next_state":       s.tensorValue(exp.NextState, rows, cols),
		"action_mask":      boolsToValues(exp.ActionMask),
		"next_action_mask": boolsToValues(exp.NextActionMask),
		"collected_at":     exp.CollectedAt.UTC().Format(time.RFC3339Nano),
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to convert experience %s: %w", exp.ID, err)
	}
	return st, nil
}

func (s *Serializer) tensorValue(grid [][]int, rows, cols int) map[string]any {
	tensor := s.StateToTensor(grid)
	data := make([]any, len(tensor))
	for i, v := range tensor {
		data[i] = float64(v)
	}
	shape := s.GetTensorShape(rows, cols)
	return map[string]any{
		"shape": []any{int(shape[0]), int(shape[1]), int(shape[2])},
		"data":  data,
	}
}

// FromStruct decodes a Struct produced by ToStruct
func (s *Serializer) FromStruct(st *structpb.Struct) (*Experience, error) {
	m := st.AsMap()
	exp := &Experience{}

	var ok bool
	if exp.ID, ok = m["experience_id"].(string); !ok {
		return nil, fmt.Errorf("experience_id missing")
	}
	exp.GameID, _ = m["game_id"].(string)
	exp.Step = int(number(m["step"]))
	exp.Action = int(number(m["action"]))
	exp.Reward = number(m["reward"])
	exp.Done, _ = m["done"].(bool)

	var err error
	if exp.State, err = s.decodeTensor(m["state"]); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if exp.NextState, err = s.decodeTensor(m["next_state"]); err != nil {
		return nil, fmt.Errorf("next_state: %w", err)
	}
	if exp.ActionMask, err = valuesToBools(m["action_mask"]); err != nil {
		return nil, fmt.Errorf("action_mask: %w", err)
	}
	if exp.NextActionMask, err = valuesToBools(m["next_action_mask"]); err != nil {
		return nil, fmt.Errorf("next_action_mask: %w", err)
	}
	if ts, ok := m["collected_at"].(string); ok {
		if exp.CollectedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("collected_at: %w", err)
		}
	}
	return exp, nil
}

func (s *Serializer) decodeTensor(v any) ([][]int, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tensor missing")
	}
	shapeVals, _ := m["shape"].([]any)
	if len(shapeVals) != 3 {
		return nil, fmt.Errorf("tensor shape has %d dims, want 3", len(shapeVals))
	}
	rows, cols := int(number(shapeVals[1])), int(number(shapeVals[2]))
	dataVals, _ := m["data"].([]any)
	data := make([]float32, len(dataVals))
	for i, d := range dataVals {
		data[i] = float32(number(d))
	}
	return s.TensorToState(data, rows, cols)
}

func shape(grid [][]int) (int, int) {
	if len(grid) == 0 {
		return 0, 0
	}
	return len(grid), len(grid[0])
}

func number(v any) float64 {
	f, _ := v.(float64)
	return f
}

func boolsToValues(bs []bool) []any {
	out := make([]any, len(bs))
	for i, b := range bs {
		out[i] = b
	}
	return out
}

func valuesToBools(v any) ([]bool, error) {
	vals, _ := v.([]any)
	return spaces.MaskFromValues(vals)
}
