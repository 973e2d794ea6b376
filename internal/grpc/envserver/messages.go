package envserver

import (
	"fmt"
	"math"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/NumGridGame/internal/game"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
)

// Request and response field names
const (
	FieldEnvID          = "env_id"
	FieldRows           = "rows"
	FieldColumns        = "columns"
	FieldSeed           = "seed"
	FieldSeeds          = "seeds"
	FieldAction         = "action"
	FieldActionCount    = "action_count"
	FieldIdempotencyKey = "idempotency_key"
	FieldObservation    = "observation"
	FieldActionMask     = "action_mask"
	FieldPosition       = "position"
	FieldStep           = "step"
	FieldReward         = "reward"
	FieldDone           = "done"
	FieldInfo           = "info"
	FieldClosed         = "closed"
)

func requireString(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok || s.StringValue == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a non-empty string", name)
	}
	return s.StringValue, nil
}

func optionalString(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return s.StringValue, nil
}

// intField reads a whole number. ok is false when the field is absent.
func intField(req *structpb.Struct, name string) (int, bool, error) {
	v, present := req.GetFields()[name]
	if !present {
		return 0, false, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, true, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, true, status.Errorf(codes.InvalidArgument, "%s must be a whole number, got %v", name, f)
	}
	return int(f), true, nil
}

// seedField parses an optional decimal seed. nil means derive from the clock.
func seedField(req *structpb.Struct) (*uint64, error) {
	s, err := optionalString(req, FieldSeed)
	if err != nil || s == "" {
		return nil, err
	}
	seed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "seed must be a decimal uint64: %v", err)
	}
	return &seed, nil
}

// FormatSeed encodes a seed for the wire
func FormatSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}

func observationValue(obs game.Observation) *structpb.Value {
	rows := make([]*structpb.Value, len(obs))
	for r, row := range obs {
		cells := make([]*structpb.Value, len(row))
		for c, v := range row {
			cells[c] = structpb.NewNumberValue(float64(v))
		}
		rows[r] = structpb.NewListValue(&structpb.ListValue{Values: cells})
	}
	return structpb.NewListValue(&structpb.ListValue{Values: rows})
}

func maskValue(mask []bool) *structpb.Value {
	vals := make([]*structpb.Value, len(mask))
	for i, b := range mask {
		vals[i] = structpb.NewBoolValue(b)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func positionValue(c core.Coordinate) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"row": structpb.NewNumberValue(float64(c.Row)),
		"col": structpb.NewNumberValue(float64(c.Col)),
	}})
}

// DecodeObservation converts a wire observation back into a grid
func DecodeObservation(v *structpb.Value) (game.Observation, error) {
	rows := v.GetListValue().GetValues()
	obs := make(game.Observation, len(rows))
	for r, row := range rows {
		list := row.GetListValue()
		if list == nil {
			return nil, fmt.Errorf("observation row %d is not a list", r)
		}
		obs[r] = make([]int, len(list.GetValues()))
		for c, cell := range list.GetValues() {
			obs[r][c] = int(cell.GetNumberValue())
		}
	}
	return obs, nil
}

// DecodeMask converts a wire action mask back into booleans
func DecodeMask(v *structpb.Value) []bool {
	vals := v.GetListValue().GetValues()
	mask := make([]bool, len(vals))
	for i, b := range vals {
		mask[i] = b.GetBoolValue()
	}
	return mask
}

// DecodePosition converts a wire position back into a coordinate
func DecodePosition(v *structpb.Value) core.Coordinate {
	f := v.GetStructValue().GetFields()
	return core.NewCoordinate(int(f["row"].GetNumberValue()), int(f["col"].GetNumberValue()))
}
