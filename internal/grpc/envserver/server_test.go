package envserver

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/NumGridGame/internal/game"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
	"github.com/mitchelldurbincs/NumGridGame/internal/testutil"
)

const bufSize = 1024 * 1024

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxEnvs:              10,
		MaxCells:             10000,
		DefaultRows:          10,
		DefaultColumns:       10,
		IdempotencyCacheSize: 16,
		BufferCapacity:       100,
	}
}

// setupTestServer creates an in-memory gRPC server for testing
func setupTestServer(t *testing.T, cfg ManagerConfig) (*Client, *EnvManager) {
	t.Helper()

	logger := testutil.NopLogger()
	manager := NewEnvManager(cfg, logger)

	lis := bufconn.Listen(bufSize)
	s := grpc.NewServer(ServerOptions(logger)...)
	RegisterEnvServiceServer(s, NewServer(manager, logger))

	go func() {
		if err := s.Serve(lis); err != nil {
			t.Logf("Server exited with error: %v", err)
		}
	}()

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		s.Stop()
		lis.Close()
		manager.Stop()
	})

	return NewClient(conn), manager
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, status.Code(err), "unexpected error: %v", err)
}

func TestCreateEnv(t *testing.T) {
	client, manager := setupTestServer(t, testManagerConfig())
	ctx := context.Background()

	info, err := client.CreateEnv(ctx, 6, 8, testutil.Seed(1))
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, 6, info.Rows)
	assert.Equal(t, 8, info.Columns)
	assert.Equal(t, game.NumActions, info.ActionCount)

	// no dimensions falls back to the defaults
	info2, err := client.CreateEnv(ctx, 0, 0, nil)
	require.NoError(t, err)
	assert.NotEqual(t, info.ID, info2.ID)
	assert.Equal(t, 10, info2.Rows)
	assert.Equal(t, 10, info2.Columns)

	assert.Equal(t, 2, manager.Count())
}

func TestCreateEnv_InvalidArguments(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]*structpb.Value
	}{
		{"rows not a number", map[string]*structpb.Value{FieldRows: structpb.NewStringValue("ten")}},
		{"fractional columns", map[string]*structpb.Value{FieldColumns: structpb.NewNumberValue(2.5)}},
		{"negative rows", map[string]*structpb.Value{FieldRows: structpb.NewNumberValue(-3)}},
		{"seed not decimal", map[string]*structpb.Value{FieldSeed: structpb.NewStringValue("0xff")}},
		{"seed as number", map[string]*structpb.Value{FieldSeed: structpb.NewNumberValue(42)}},
	}

	client, _ := setupTestServer(t, testManagerConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.invoke(context.Background(), MethodCreateEnv, tt.fields)
			requireCode(t, err, codes.InvalidArgument)
		})
	}
}

func TestCreateEnv_GridTooLarge(t *testing.T) {
	client, manager := setupTestServer(t, testManagerConfig())
	ctx := context.Background()

	tests := []struct {
		name       string
		rows, cols int
	}{
		{"just over the limit", 101, 100},
		{"billions of cells", 2000000000, 2000000000},
		{"one huge side", 1, 10001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateEnv(ctx, tt.rows, tt.cols, nil)
			requireCode(t, err, codes.InvalidArgument)
		})
	}
	assert.Equal(t, 0, manager.Count())

	// the server keeps serving after rejecting oversized grids
	info, err := client.CreateEnv(ctx, 100, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, info.Rows)
	require.NoError(t, client.CloseEnv(ctx, info.ID))
	assert.Equal(t, 0, manager.Count())
}

func TestCreateEnv_AtCapacity(t *testing.T) {
	cfg := testManagerConfig()
	cfg.MaxEnvs = 1
	client, manager := setupTestServer(t, cfg)
	ctx := context.Background()

	info, err := client.CreateEnv(ctx, 5, 5, nil)
	require.NoError(t, err)

	_, err = client.CreateEnv(ctx, 5, 5, nil)
	requireCode(t, err, codes.ResourceExhausted)
	assert.Equal(t, 1, manager.Count())

	// closing frees the slot
	require.NoError(t, client.CloseEnv(ctx, info.ID))
	_, err = client.CreateEnv(ctx, 5, 5, nil)
	require.NoError(t, err)
}

func TestResetAndStep(t *testing.T) {
	client, manager := setupTestServer(t, testManagerConfig())
	ctx := context.Background()

	info, err := client.CreateEnv(ctx, 10, 10, testutil.Seed(7))
	require.NoError(t, err)

	reset, err := client.Reset(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reset.Step)
	require.Len(t, reset.Observation, 10)
	require.Len(t, reset.Observation[0], 10)
	require.Len(t, reset.ActionMask, game.NumActions)
	assert.False(t, reset.ActionMask[core.MoveStay], "staying is never legal")

	pos := reset.Position
	assert.GreaterOrEqual(t, pos.Row, 1)
	assert.GreaterOrEqual(t, pos.Col, 1)
	assert.Equal(t, int(core.CellCurrent), reset.Observation[pos.Row][pos.Col])

	action, err := client.SampleAction(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, reset.ActionMask[action])

	reply, err := client.Step(ctx, info.ID, action, "")
	require.NoError(t, err)
	assert.Equal(t, game.StepReward, reply.Reward)
	assert.Equal(t, 2, reply.Step)
	assert.Empty(t, reply.Info)
	assert.Equal(t, pos.Add(core.MoveOffsets[action]), reply.Position)
	assert.Equal(t, int(core.CellFilled), reply.Observation[pos.Row][pos.Col])
	assert.Equal(t, int(core.CellCurrent), reply.Observation[reply.Position.Row][reply.Position.Col])

	env, ok := manager.GetEnv(info.ID)
	require.True(t, ok)
	assert.Equal(t, env.engine.ActionSpace().Mask(), reply.ActionMask)
}

func TestStep_Errors(t *testing.T) {
	client, _ := setupTestServer(t, testManagerConfig())
	ctx := context.Background()

	info, err := client.CreateEnv(ctx, 10, 10, testutil.Seed(3))
	require.NoError(t, err)

	t.Run("before reset", func(t *testing.T) {
		_, err := client.Step(ctx, info.ID, 1, "")
		requireCode(t, err, codes.FailedPrecondition)
	})

	_, err = client.Reset(ctx, info.ID)
	require.NoError(t, err)

	t.Run("stay is illegal", func(t *testing.T) {
		_, err := client.Step(ctx, info.ID, int(core.MoveStay), "")
		requireCode(t, err, codes.InvalidArgument)
	})

	t.Run("out of range action", func(t *testing.T) {
		_, err := client.Step(ctx, info.ID, game.NumActions, "")
		requireCode(t, err, codes.InvalidArgument)
	})

	t.Run("missing action", func(t *testing.T) {
		_, err := client.invoke(ctx, MethodStep, envField(info.ID))
		requireCode(t, err, codes.InvalidArgument)
	})

	t.Run("missing env id", func(t *testing.T) {
		_, err := client.invoke(ctx, MethodStep, map[string]*structpb.Value{
			FieldAction: structpb.NewNumberValue(1),
		})
		requireCode(t, err, codes.InvalidArgument)
	})

	t.Run("unknown env", func(t *testing.T) {
		_, err := client.Step(ctx, "no-such-env", 1, "")
		requireCode(t, err, codes.NotFound)
	})
}

func TestTerminalEnvironment(t *testing.T) {
	client, _ := setupTestServer(t, testManagerConfig())
	ctx := context.Background()

	// a single cell has nowhere to go
	info, err := client.CreateEnv(ctx, 1, 1, testutil.Seed(1))
	require.NoError(t, err)

	reset, err := client.Reset(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, reset.Done)
	assert.Equal(t, make([]bool, game.NumActions), reset.ActionMask)

	_, err = client.Step(ctx, info.ID, 1, "")
	requireCode(t, err, codes.FailedPrecondition)

	_, err = client.SampleAction(ctx, info.ID)
	requireCode(t, err, codes.FailedPrecondition)
}

func TestStep_IdempotentReplay(t *testing.T) {
	client, manager := setupTestServer(t, testManagerConfig())
	ctx := context.Background()

	info, err := client.CreateEnv(ctx, 10, 10, testutil.Seed(11))
	require.NoError(t, err)
	_, err = client.Reset(ctx, info.ID)
	require.NoError(t, err)

	action, err := client.SampleAction(ctx, info.ID)
	require.NoError(t, err)

	first, err := client.Step(ctx, info.ID, action, "step-1")
	require.NoError(t, err)

	// same key returns the cached reply without stepping again, even
	// when the action would now be different
	second, err := client.Step(ctx, info.ID, int(core.MoveStay), "step-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	env, ok := manager.GetEnv(info.ID)
	require.True(t, ok)
	assert.Equal(t, 2, env.engine.StepCount())
	assert.Equal(t, 1, env.idempotency.Len())

	// reset starts a new episode with an empty cache
	_, err = client.Reset(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, env.idempotency.Len())

	_, err = client.Step(ctx, info.ID, int(core.MoveStay), "step-1")
	requireCode(t, err, codes.InvalidArgument)
}

func TestSeed_Deterministic(t *testing.T) {
	client, _ := setupTestServer(t, testManagerConfig())
	ctx := context.Background()

	info, err := client.CreateEnv(ctx, 20, 20, nil)
	require.NoError(t, err)

	seeds, err := client.Seed(ctx, info.ID, testutil.Seed(42))
	require.NoError(t, err)
	assert.Equal(t, []uint64{42}, seeds)

	first, err := client.Reset(ctx, info.ID)
	require.NoError(t, err)

	_, err = client.Seed(ctx, info.ID, testutil.Seed(42))
	require.NoError(t, err)
	second, err := client.Reset(ctx, info.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Position, second.Position)
	assert.Equal(t, first.Observation, second.Observation)

	// a second environment with the same seed starts in the same place
	other, err := client.CreateEnv(ctx, 20, 20, testutil.Seed(42))
	require.NoError(t, err)
	third, err := client.Reset(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Position, third.Position)

	// no seed lets the server pick one
	picked, err := client.Seed(ctx, info.ID, nil)
	require.NoError(t, err)
	assert.Len(t, picked, 1)

	// full uint64 range survives the wire
	big, err := client.Seed(ctx, info.ID, testutil.Seed(1<<63+5))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1<<63 + 5}, big)
}

func TestSampleAction_BeforeReset(t *testing.T) {
	client, _ := setupTestServer(t, testManagerConfig())
	ctx := context.Background()

	info, err := client.CreateEnv(ctx, 5, 5, nil)
	require.NoError(t, err)

	_, err = client.SampleAction(ctx, info.ID)
	requireCode(t, err, codes.FailedPrecondition)
}

func TestCloseEnv(t *testing.T) {
	client, manager := setupTestServer(t, testManagerConfig())
	ctx := context.Background()

	info, err := client.CreateEnv(ctx, 5, 5, nil)
	require.NoError(t, err)

	out, err := client.invoke(ctx, MethodCloseEnv, envField(info.ID))
	require.NoError(t, err)
	assert.True(t, out.GetFields()[FieldClosed].GetBoolValue())
	assert.Equal(t, 0, manager.Count())

	err = client.CloseEnv(ctx, info.ID)
	requireCode(t, err, codes.NotFound)

	_, err = client.Reset(ctx, info.ID)
	requireCode(t, err, codes.NotFound)
}

func TestStreamExperiences(t *testing.T) {
	cfg := testManagerConfig()
	cfg.CollectExperiences = true
	client, _ := setupTestServer(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := client.CreateEnv(ctx, 10, 10, testutil.Seed(5))
	require.NoError(t, err)

	stream, err := client.StreamExperiences(ctx, info.ID)
	require.NoError(t, err)

	reset, err := client.Reset(ctx, info.ID)
	require.NoError(t, err)
	action, err := client.SampleAction(ctx, info.ID)
	require.NoError(t, err)
	reply, err := client.Step(ctx, info.ID, action, "")
	require.NoError(t, err)

	exp, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, info.ID, exp.GameID)
	assert.Equal(t, 2, exp.Step)
	assert.Equal(t, action, exp.Action)
	assert.Equal(t, game.StepReward, exp.Reward)
	assert.Equal(t, [][]int(reset.Observation), exp.State)
	assert.Equal(t, [][]int(reply.Observation), exp.NextState)
	assert.Equal(t, reset.ActionMask, exp.ActionMask)
	assert.Equal(t, reply.ActionMask, exp.NextActionMask)

	// closing the environment ends the stream
	require.NoError(t, client.CloseEnv(ctx, info.ID))
	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamExperiences_Disabled(t *testing.T) {
	client, _ := setupTestServer(t, testManagerConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := client.CreateEnv(ctx, 5, 5, nil)
	require.NoError(t, err)

	stream, err := client.StreamExperiences(ctx, info.ID)
	require.NoError(t, err)
	_, err = stream.Recv()
	requireCode(t, err, codes.FailedPrecondition)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"illegal move", core.NewStepError(3, 4, core.ErrIllegalMove), codes.InvalidArgument},
		{"not reset", core.NewStepError(0, 1, core.ErrNotReset), codes.FailedPrecondition},
		{"episode over", core.NewStepError(9, 1, core.ErrEpisodeOver), codes.FailedPrecondition},
		{"empty action space", core.ErrEmptyActionSpace, codes.FailedPrecondition},
		{"not found", ErrEnvNotFound, codes.NotFound},
		{"capacity", ErrAtCapacity, codes.ResourceExhausted},
		{"grid too large", ErrGridTooLarge, codes.InvalidArgument},
		{"status passes through", status.Error(codes.Aborted, "x"), codes.Aborted},
		{"anything else", io.ErrUnexpectedEOF, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(toStatus(tt.err)))
		})
	}
	assert.NoError(t, toStatus(nil))
}
