package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/mitchelldurbincs/NumGridGame/internal/config"
	"github.com/mitchelldurbincs/NumGridGame/internal/grpc/envserver"
	"github.com/mitchelldurbincs/NumGridGame/internal/monitoring"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to config file")
	env := flag.String("env", "", "Environment overlay to merge (e.g. production)")
	port := flag.Int("port", -1, "The server port (-1 to use config default)")
	host := flag.String("host", "", "The server host (empty to use config default)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error) (empty to use config default)")
	maxEnvs := flag.Int("max-envs", -1, "Maximum concurrent environments (-1 to use config default)")
	collect := flag.Bool("collect-experiences", false, "Collect experiences for StreamExperiences")
	enableReflection := flag.Bool("enable-reflection", false, "Enable gRPC reflection for debugging")
	flag.Parse()

	// Initialize configuration
	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	if *env != "" {
		if err := config.LoadEnvironmentConfig(*env); err != nil {
			log.Fatal().Err(err).Str("env", *env).Msg("Failed to load environment config")
		}
	}

	cfg := config.Get()
	serverCfg := cfg.Server.GRPCServer

	// Use config defaults if not overridden by flags
	if *port == -1 {
		*port = serverCfg.Port
	}
	if *host == "" {
		*host = serverCfg.Host
	}
	if *logLevel == "" {
		*logLevel = serverCfg.LogLevel
	}
	if *maxEnvs == -1 {
		*maxEnvs = serverCfg.MaxEnvs
	}
	if !*collect {
		*collect = cfg.Experience.Enabled
	}
	// For enableReflection, use config if flag not explicitly set to true
	if !*enableReflection {
		*enableReflection = serverCfg.EnableReflection
	}

	setupLogging(*logLevel, cfg.Logging.Format)

	log.Info().
		Int("port", *port).
		Str("host", *host).
		Int("max_envs", *maxEnvs).
		Bool("collect_experiences", *collect).
		Msg("Starting gRPC environment server")

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", *host, *port))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to listen")
	}

	grpcServer := grpc.NewServer(envserver.ServerOptions(log.Logger)...)

	manager := envserver.NewEnvManager(envserver.ManagerConfig{
		MaxEnvs:              *maxEnvs,
		MaxCells:             serverCfg.MaxGridCells,
		DefaultRows:          cfg.Game.Rows,
		DefaultColumns:       cfg.Game.Columns,
		IdleTimeout:          time.Duration(serverCfg.IdleTimeout) * time.Second,
		CleanupInterval:      time.Duration(serverCfg.CleanupInterval) * time.Second,
		IdempotencyCacheSize: serverCfg.IdempotencyCacheSize,
		CollectExperiences:   *collect,
		BufferCapacity:       cfg.Experience.BufferCapacity,
		LogEvents:            cfg.Development.VerboseLogging,
	}, log.Logger)
	manager.Start()

	monitor := monitoring.NewMonitor(monitoring.DefaultOptions(), log.Logger)
	monitor.RegisterGauge("envs", manager.Count)
	monitor.RegisterGauge("buffered_experiences", manager.BufferedExperiences)
	monitor.Start()

	envserver.RegisterEnvServiceServer(grpcServer, envserver.NewServer(manager, log.Logger))

	// Register health service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(envserver.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	if *enableReflection {
		reflection.Register(grpcServer)
		log.Info().Msg("gRPC reflection enabled")
	}

	// Config changes only affect logging at runtime; the manager keeps its limits.
	config.WatchConfig(func(c *config.Config) {
		setupLogging(c.Server.GRPCServer.LogLevel, c.Logging.Format)
		log.Info().Str("file", config.ConfigFilePath()).Msg("Config reloaded")
	}, func(err error) {
		log.Warn().Err(err).Msg("Ignoring invalid config change")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus(envserver.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		// Give ongoing requests time to complete
		time.Sleep(time.Duration(serverCfg.GracefulShutdownDelay) * time.Second)

		log.Info().Msg("Gracefully stopping gRPC server")
		// Releasing the envs first closes open experience streams, which
		// GracefulStop would otherwise wait on.
		manager.Stop()
		grpcServer.GracefulStop()
		monitor.Stop()
		cancel()
	}()

	log.Info().Str("address", lis.Addr().String()).Msg("gRPC server listening")

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Server shutdown complete")
}

func setupLogging(level, format string) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if format == "json" || os.Getenv("APP_ENV") == "production" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
}
