package envserver

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/NumGridGame/internal/experience"
	"github.com/mitchelldurbincs/NumGridGame/internal/game"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/states"
)

// Server implements EnvServiceServer on top of an EnvManager
type Server struct {
	manager    *EnvManager
	serializer *experience.Serializer
	logger     zerolog.Logger
}

var _ EnvServiceServer = (*Server)(nil)

// NewServer creates a new environment server
func NewServer(manager *EnvManager, logger zerolog.Logger) *Server {
	return &Server{
		manager:    manager,
		serializer: experience.NewSerializer(),
		logger:     logger.With().Str("component", "env_server").Logger(),
	}
}

// toStatus maps engine and manager errors onto gRPC codes
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrEnvNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrGridTooLarge):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrAtCapacity):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, core.ErrIllegalMove), errors.Is(err, core.ErrInvalidMask):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, core.ErrNotReset), errors.Is(err, core.ErrEpisodeOver), errors.Is(err, core.ErrEmptyActionSpace):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// lookup resolves env_id and locks the instance. The caller must unlock.
func (s *Server) lookup(req *structpb.Struct) (*envInstance, error) {
	id, err := requireString(req, FieldEnvID)
	if err != nil {
		return nil, err
	}
	env, ok := s.manager.GetEnv(id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "environment %s not found", id)
	}
	env.mu.Lock()
	env.touch(s.manager.now())
	return env, nil
}

// CreateEnv creates a new environment
func (s *Server) CreateEnv(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rows, _, err := intField(req, FieldRows)
	if err != nil {
		return nil, err
	}
	cols, _, err := intField(req, FieldColumns)
	if err != nil {
		return nil, err
	}
	if rows < 0 || cols < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "grid dimensions must be positive, got %dx%d", rows, cols)
	}
	seed, err := seedField(req)
	if err != nil {
		return nil, err
	}

	env, err := s.manager.CreateEnv(rows, cols, seed)
	if err != nil {
		return nil, toStatus(err)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEnvID:       structpb.NewStringValue(env.id),
		FieldRows:        structpb.NewNumberValue(float64(env.engine.Rows())),
		FieldColumns:     structpb.NewNumberValue(float64(env.engine.Columns())),
		FieldActionCount: structpb.NewNumberValue(float64(game.NumActions)),
	}}, nil
}

// Reset starts a new episode
func (s *Server) Reset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	defer env.mu.Unlock()

	obs := env.engine.Reset()
	env.idempotency.Clear()

	s.logger.Debug().
		Str("env_id", env.id).
		Str("start", env.engine.Position().String()).
		Msg("Environment reset")

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldObservation: observationValue(obs),
		FieldActionMask:  maskValue(env.engine.ActionSpace().Mask()),
		FieldPosition:    positionValue(env.engine.Position()),
		FieldStep:        structpb.NewNumberValue(float64(env.engine.StepCount())),
		FieldDone:        structpb.NewBoolValue(env.engine.IsTerminal()),
	}}, nil
}

// Step applies one action. Repeating an idempotency key returns the first
// response without stepping again.
func (s *Server) Step(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	action, present, err := intField(req, FieldAction)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, status.Errorf(codes.InvalidArgument, "%s is required", FieldAction)
	}
	key, err := optionalString(req, FieldIdempotencyKey)
	if err != nil {
		return nil, err
	}

	env, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	defer env.mu.Unlock()

	if cached := env.idempotency.Check(key); cached != nil {
		s.logger.Debug().
			Str("env_id", env.id).
			Str("idempotency_key", key).
			Msg("Returning cached step response")
		return cached, nil
	}

	res, err := env.engine.Step(action)
	if err != nil {
		return nil, toStatus(err)
	}

	info, err := structpb.NewStruct(res.Info)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode info: %v", err)
	}

	resp := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldObservation: observationValue(res.Observation),
		FieldReward:      structpb.NewNumberValue(res.Reward),
		FieldDone:        structpb.NewBoolValue(res.Done),
		FieldActionMask:  maskValue(env.engine.ActionSpace().Mask()),
		FieldPosition:    positionValue(env.engine.Position()),
		FieldStep:        structpb.NewNumberValue(float64(env.engine.StepCount())),
		FieldInfo:        structpb.NewStructValue(info),
	}}
	env.idempotency.Store(key, resp)
	return resp, nil
}

// Seed reseeds the environment's random source
func (s *Server) Seed(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	seed, err := seedField(req)
	if err != nil {
		return nil, err
	}
	env, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	defer env.mu.Unlock()

	used := env.engine.Seed(seed)
	seeds := make([]*structpb.Value, len(used))
	for i, v := range used {
		seeds[i] = structpb.NewStringValue(FormatSeed(v))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldSeeds: structpb.NewListValue(&structpb.ListValue{Values: seeds}),
	}}, nil
}

// SampleAction draws a legal action without applying it
func (s *Server) SampleAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	defer env.mu.Unlock()

	if env.engine.Phase() == states.PhaseUninitialized {
		return nil, toStatus(core.ErrNotReset)
	}
	action, err := env.engine.ActionSpace().Sample()
	if err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldAction: structpb.NewNumberValue(float64(action)),
	}}, nil
}

// CloseEnv releases an environment
func (s *Server) CloseEnv(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireString(req, FieldEnvID)
	if err != nil {
		return nil, err
	}
	if err := s.manager.CloseEnv(id); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldClosed: structpb.NewBoolValue(true),
	}}, nil
}

// StreamExperiences sends every experience the environment collects until
// the client goes away or the environment is closed.
func (s *Server) StreamExperiences(req *structpb.Struct, stream ExperienceStreamServer) error {
	env, err := s.lookup(req)
	if err != nil {
		return err
	}
	buffer := env.buffer
	env.mu.Unlock()

	if buffer == nil {
		return status.Errorf(codes.FailedPrecondition, "experience collection is disabled for environment %s", env.id)
	}

	s.logger.Info().Str("env_id", env.id).Msg("Experience stream opened")
	ctx := stream.Context()
	ch := buffer.StreamChannel()
	sent := 0

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str("env_id", env.id).Int("sent", sent).Msg("Experience stream cancelled by client")
			return status.FromContextError(ctx.Err()).Err()
		case exp, ok := <-ch:
			if !ok {
				s.logger.Info().Str("env_id", env.id).Int("sent", sent).Msg("Experience stream ended")
				return nil
			}
			msg, err := s.serializer.ToStruct(exp)
			if err != nil {
				return status.Errorf(codes.Internal, "encode experience: %v", err)
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
			sent++
		}
	}
}
