package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/zeladoria/portal-gateway/internal/api"
	"github.com/zeladoria/portal-gateway/internal/backend"
	"github.com/zeladoria/portal-gateway/internal/config"
	"github.com/zeladoria/portal-gateway/internal/session"
	"github.com/zeladoria/portal-gateway/internal/storage"
	"github.com/zeladoria/portal-gateway/internal/storage/memory"
	"github.com/zeladoria/portal-gateway/internal/storage/postgres"
	"github.com/zeladoria/portal-gateway/internal/storage/redis"
	"github.com/zeladoria/portal-gateway/internal/task"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Str("config", fmt.Sprintf("%+v", cfg)).Msg("")

	// Initialize the configured storage driver
	log.Info().Str("driver", cfg.StorageDriver).Msg("initializing session storage...")
	driver, err := createStorageDriver(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the storage driver")
	}
	if err := driver.Initialize(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("could not initialize the storage driver")
	}
	defer driver.Close()

	// Create the backend API client and the session manager
	backendClient := backend.New(cfg.BackendBaseURL)
	sessionManager := session.NewManager(
		driver.Sessions(),
		backendClient,
		cfg.AccessTokenTTL,
		cfg.SessionTTL,
		cfg.RememberSessionTTL,
	)

	// Schedule a task that sweeps expired sessions
	sweepingTask := task.NewRepeating(func() {
		n, err := sessionManager.SweepExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("could not sweep expired sessions")
		} else if n > 0 {
			log.Info().Int("amount", n).Msg("swept expired sessions")
		}
	}, time.Minute)
	sweepingTask.Start()
	defer sweepingTask.Stop(true)

	// Start up the gateway API
	log.Info().Str("listen_address", cfg.ListenAddress).Msg("starting up the gateway API...")
	apiService := &api.Service{
		Config:   cfg,
		Storage:  driver,
		Backend:  backendClient,
		Sessions: sessionManager,
	}
	apiErrs := make(chan error, 1)
	apiService.Startup(apiErrs)
	go func() {
		err := <-apiErrs
		log.Fatal().Err(err).Msg("the API service raised an unexpected error")
	}()
	defer func() {
		log.Info().Msg("shutting down the gateway API...")
		apiService.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)
	<-shutdown
}

func createStorageDriver(cfg *config.Config) (storage.Driver, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case "memory":
		return memory.New(), nil
	case "postgres":
		return postgres.New(cfg.PostgresDSN), nil
	case "redis":
		return redis.New(redis.Options{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
