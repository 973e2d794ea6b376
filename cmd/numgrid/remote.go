package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mitchelldurbincs/NumGridGame/internal/config"
	"github.com/mitchelldurbincs/NumGridGame/internal/experience"
	"github.com/mitchelldurbincs/NumGridGame/internal/grpc/envserver"
	"github.com/mitchelldurbincs/NumGridGame/internal/rollout"
)

var (
	flagAddr         string
	flagRemoteEps    int
	flagStreamToFile string
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Play random episodes on a server",
	Long: `Create an environment on a running grpc_server and play random episodes
on it. Steps carry idempotency keys so they can be retried safely.

With --stream the experiences the server collects are written as JSON lines
(the server must run with experience collection enabled).`,
	Args: cobra.NoArgs,
	RunE: runRemote,
}

func init() {
	remoteCmd.Flags().StringVar(&flagAddr, "addr", "", "Server address (default: config host:port)")
	remoteCmd.Flags().IntVar(&flagRemoteEps, "episodes", 1, "Number of episodes")
	remoteCmd.Flags().StringVar(&flagStreamToFile, "stream", "", "Write streamed experiences to this file")
}

func runRemote(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	addr := flagAddr
	if addr == "" {
		host := cfg.Server.GRPCServer.Host
		if host == "" || host == "0.0.0.0" {
			host = "localhost"
		}
		addr = fmt.Sprintf("%s:%d", host, cfg.Server.GRPCServer.Port)
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	ctx := cmd.Context()
	client := envserver.NewClient(conn)

	rows, cols, seed := gameSettings(cfg)
	info, err := client.CreateEnv(ctx, rows, cols, seed)
	if err != nil {
		return fmt.Errorf("create env: %w", err)
	}
	logger := log.With().Str("env_id", info.ID).Logger()
	logger.Info().Int("rows", info.Rows).Int("columns", info.Columns).Msg("Remote environment created")

	streamDone := make(chan error, 1)
	if flagStreamToFile != "" {
		stream, err := client.StreamExperiences(ctx, info.ID)
		if err != nil {
			return fmt.Errorf("open experience stream: %w", err)
		}
		go func() { streamDone <- saveStream(stream, flagStreamToFile) }()
	} else {
		close(streamDone)
	}

	results := make([]rollout.EpisodeResult, 0, flagRemoteEps)
	var playErr error
	for ep := 1; ep <= flagRemoteEps; ep++ {
		res, err := playRemoteEpisode(ctx, client, info.ID)
		if err != nil {
			playErr = fmt.Errorf("episode %d: %w", ep, err)
			break
		}
		res.Episode = ep
		res.Coverage = float64(res.Steps+1) / float64(info.Rows*info.Columns)
		results = append(results, res)
		logger.Info().Int("episode", ep).Int("steps", res.Steps).Float64("coverage", res.Coverage).Msg("Episode finished")
	}

	// closing the env ends the experience stream
	if err := client.CloseEnv(context.WithoutCancel(ctx), info.ID); err != nil {
		logger.Warn().Err(err).Msg("Failed to close remote environment")
	}
	if err := <-streamDone; err != nil {
		logger.Warn().Err(err).Msg("Experience stream failed")
	}

	s := rollout.Summarize(results)
	fmt.Fprintf(cmd.OutOrStdout(), "episodes %d  mean steps %.1f  max steps %d  mean coverage %.1f%%\n",
		s.Episodes, s.MeanSteps, s.MaxSteps, s.MeanCoverage*100)
	return playErr
}

func playRemoteEpisode(ctx context.Context, client *envserver.Client, envID string) (rollout.EpisodeResult, error) {
	var res rollout.EpisodeResult
	reset, err := client.Reset(ctx, envID)
	if err != nil {
		return res, err
	}

	done := reset.Done
	for !done {
		action, err := client.SampleAction(ctx, envID)
		if err != nil {
			return res, err
		}
		reply, err := client.Step(ctx, envID, action, uuid.New().String())
		if err != nil {
			return res, err
		}
		res.Steps++
		res.TotalReward += reply.Reward
		done = reply.Done
	}
	return res, nil
}

func saveStream(stream *envserver.ExperienceStream, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := experience.NewWriter(f, log.Logger)
	for {
		exp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Close()
			return err
		}
		if err := w.Write(exp); err != nil {
			return err
		}
	}
	return w.Close()
}
