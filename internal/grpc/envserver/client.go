package envserver

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/NumGridGame/internal/experience"
	"github.com/mitchelldurbincs/NumGridGame/internal/game"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
)

// EnvInfo describes a freshly created remote environment
type EnvInfo struct {
	ID          string
	Rows        int
	Columns     int
	ActionCount int
}

// ResetResult is the decoded reply of Reset
type ResetResult struct {
	Observation game.Observation
	ActionMask  []bool
	Position    core.Coordinate
	Step        int
	Done        bool
}

// StepReply is the decoded reply of Step
type StepReply struct {
	Observation game.Observation
	Reward      float64
	Done        bool
	ActionMask  []bool
	Position    core.Coordinate
	Step        int
	Info        map[string]any
}

// Client is a typed client for EnvService
type Client struct {
	cc         grpc.ClientConnInterface
	serializer *experience.Serializer
}

// NewClient wraps an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, serializer: experience.NewSerializer()}
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]*structpb.Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &structpb.Struct{Fields: fields}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func envField(id string) map[string]*structpb.Value {
	return map[string]*structpb.Value{FieldEnvID: structpb.NewStringValue(id)}
}

// CreateEnv asks the server for a new environment. Zero dimensions use the
// server defaults.
func (c *Client) CreateEnv(ctx context.Context, rows, cols int, seed *uint64, opts ...grpc.CallOption) (EnvInfo, error) {
	fields := map[string]*structpb.Value{}
	if rows > 0 {
		fields[FieldRows] = structpb.NewNumberValue(float64(rows))
	}
	if cols > 0 {
		fields[FieldColumns] = structpb.NewNumberValue(float64(cols))
	}
	if seed != nil {
		fields[FieldSeed] = structpb.NewStringValue(FormatSeed(*seed))
	}

	out, err := c.invoke(ctx, MethodCreateEnv, fields, opts...)
	if err != nil {
		return EnvInfo{}, err
	}
	f := out.GetFields()
	return EnvInfo{
		ID:          f[FieldEnvID].GetStringValue(),
		Rows:        int(f[FieldRows].GetNumberValue()),
		Columns:     int(f[FieldColumns].GetNumberValue()),
		ActionCount: int(f[FieldActionCount].GetNumberValue()),
	}, nil
}

// Reset starts a new episode on the remote environment
func (c *Client) Reset(ctx context.Context, envID string, opts ...grpc.CallOption) (ResetResult, error) {
	out, err := c.invoke(ctx, MethodReset, envField(envID), opts...)
	if err != nil {
		return ResetResult{}, err
	}
	f := out.GetFields()
	obs, err := DecodeObservation(f[FieldObservation])
	if err != nil {
		return ResetResult{}, err
	}
	return ResetResult{
		Observation: obs,
		ActionMask:  DecodeMask(f[FieldActionMask]),
		Position:    DecodePosition(f[FieldPosition]),
		Step:        int(f[FieldStep].GetNumberValue()),
		Done:        f[FieldDone].GetBoolValue(),
	}, nil
}

// Step applies action remotely. A non-empty idempotencyKey makes retries safe.
func (c *Client) Step(ctx context.Context, envID string, action int, idempotencyKey string, opts ...grpc.CallOption) (StepReply, error) {
	fields := envField(envID)
	fields[FieldAction] = structpb.NewNumberValue(float64(action))
	if idempotencyKey != "" {
		fields[FieldIdempotencyKey] = structpb.NewStringValue(idempotencyKey)
	}

	out, err := c.invoke(ctx, MethodStep, fields, opts...)
	if err != nil {
		return StepReply{}, err
	}
	f := out.GetFields()
	obs, err := DecodeObservation(f[FieldObservation])
	if err != nil {
		return StepReply{}, err
	}
	return StepReply{
		Observation: obs,
		Reward:      f[FieldReward].GetNumberValue(),
		Done:        f[FieldDone].GetBoolValue(),
		ActionMask:  DecodeMask(f[FieldActionMask]),
		Position:    DecodePosition(f[FieldPosition]),
		Step:        int(f[FieldStep].GetNumberValue()),
		Info:        f[FieldInfo].GetStructValue().AsMap(),
	}, nil
}

// Seed reseeds the remote environment. A nil seed lets the server pick one.
func (c *Client) Seed(ctx context.Context, envID string, seed *uint64, opts ...grpc.CallOption) ([]uint64, error) {
	fields := envField(envID)
	if seed != nil {
		fields[FieldSeed] = structpb.NewStringValue(FormatSeed(*seed))
	}

	out, err := c.invoke(ctx, MethodSeed, fields, opts...)
	if err != nil {
		return nil, err
	}
	values := out.GetFields()[FieldSeeds].GetListValue().GetValues()
	seeds := make([]uint64, 0, len(values))
	for _, v := range values {
		s, err := strconv.ParseUint(v.GetStringValue(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode seed %q: %w", v.GetStringValue(), err)
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}

// SampleAction draws a legal action on the server without applying it
func (c *Client) SampleAction(ctx context.Context, envID string, opts ...grpc.CallOption) (int, error) {
	out, err := c.invoke(ctx, MethodSampleAction, envField(envID), opts...)
	if err != nil {
		return 0, err
	}
	return int(out.GetFields()[FieldAction].GetNumberValue()), nil
}

// CloseEnv releases the remote environment
func (c *Client) CloseEnv(ctx context.Context, envID string, opts ...grpc.CallOption) error {
	_, err := c.invoke(ctx, MethodCloseEnv, envField(envID), opts...)
	return err
}

// ExperienceStream receives experiences from StreamExperiences
type ExperienceStream struct {
	stream     grpc.ClientStream
	serializer *experience.Serializer
}

// Recv blocks for the next experience. io.EOF marks the end of the stream.
func (s *ExperienceStream) Recv() (*experience.Experience, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	return s.serializer.FromStruct(msg)
}

// StreamExperiences subscribes to the experiences collected by envID
func (c *Client) StreamExperiences(ctx context.Context, envID string, opts ...grpc.CallOption) (*ExperienceStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], MethodStreamExperiences, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&structpb.Struct{Fields: envField(envID)}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &ExperienceStream{stream: stream, serializer: c.serializer}, nil
}
