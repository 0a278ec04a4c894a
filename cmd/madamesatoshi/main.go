package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/artdesignbySF/MadameSatoshi/config"
	"github.com/artdesignbySF/MadameSatoshi/db/redis"
	"github.com/artdesignbySF/MadameSatoshi/events/kafka"
	"github.com/artdesignbySF/MadameSatoshi/logging"
	"github.com/artdesignbySF/MadameSatoshi/provider"
	"github.com/artdesignbySF/MadameSatoshi/server"
)

var version = getVersion()

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "dev"
}

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:     "madamesatoshi",
		Short:   "Madame Satoshi fortune draw service",
		Version: version,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile)
		},
	}
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file path (defaults to config/config-<env>.yaml)")

	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(configFile string) error {
	// 1. Load config & logger
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.LoadByEnv("config")
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := logging.New(cfg.Logging)

	// 2. Initialize dependencies
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	kafkaProducer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Kafka producer")
	}
	if kafkaProducer == nil {
		logger.Info().Msg("Kafka brokers not configured, audit events disabled")
	}

	// 3. Create app & set providers
	app := server.New(server.Options{Config: cfg, Logger: logger})
	app.SetLedgerStore(provider.NewRedisStore(redisClient, cfg.Redis.KeyPrefix, logger))
	app.SetWallet(provider.NewLNbitsProvider(cfg, logger))
	app.SetEventLog(provider.NewKafkaEventLog(kafkaProducer, cfg.Kafka.AuditTopic, logger))

	// 4. Setup routes & features
	app.UseCommonMiddlewares()
	app.RegisterHealthCheck()
	if err := app.Bootstrap(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to bootstrap application")
	}

	// 5. Seed the jackpot pool before accepting traffic
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.EnsureSeeded(seedCtx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed jackpot pool")
	}

	// 6. Cleanup & run
	app.OnShutdown(func() {
		if kafkaProducer != nil {
			kafkaProducer.Close()
		}
		_ = redisClient.Close()
	})

	logger.Info().Int("port", cfg.Server.Port).Str("version", version).Msg("Starting Madame Satoshi service")
	return app.Run()
}
