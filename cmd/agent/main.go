package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/absmach/flotilla/agent"
	"github.com/absmach/flotilla/dataset"
	"github.com/absmach/flotilla/pkg/mqtt"
	"github.com/absmach/flotilla/pkg/sdk"
	"github.com/absmach/flotilla/trainer"
)

const (
	defConfigPath = "agent/config.json"
	mqttQoS       = 1
	mqttTimeout   = 30 * time.Second
	trainerSeed   = 1
)

var (
	configPath string
	clientNum  int
	logLevel   slog.Level
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flag.StringVar(&configPath, "config", defConfigPath, "Path to the agent configuration file")
	flag.IntVar(&clientNum, "client", 0, "Numeric client id used to pick the dataset shard")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := agent.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := configureLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Starting agent", slog.String("client_id", cfg.ClientID))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	if cfg.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if clientNum < 1 {
		return errors.New("a positive -client number is required to locate the dataset shard")
	}

	shard, err := dataset.LoadShard(cfg.DataDir, clientNum)
	if err != nil {
		return fmt.Errorf("failed to load dataset shard: %w", err)
	}
	logger.Info("Dataset shard loaded",
		slog.Int("client", clientNum),
		slog.Int("samples", shard.Len()),
	)

	var pubsub mqtt.PubSub
	if cfg.BrokerURL != "" {
		pubsub, err = mqtt.NewPubSub(cfg.BrokerURL, mqttQoS, "agent-"+cfg.ClientID, cfg.ClientID, mqttTimeout, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to broker: %w", err)
		}
		defer func() {
			if err := pubsub.Disconnect(ctx); err != nil {
				logger.Error("failed to disconnect from broker", slog.Any("error", err))
			}
		}()
	}

	s := sdk.NewSDK(sdk.Config{CoordinatorURL: cfg.CoordinatorURL})
	tr := trainer.New(shard.X, shard.Y, cfg.LocalEpochs, cfg.BatchSize, trainerSeed+int64(clientNum))

	a := agent.New(cfg, s, tr, pubsub, logger)
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("agent exited with error: %w", err)
	}

	return nil
}

func configureLogger(level string) *slog.Logger {
	if level == "" {
		level = "info"
	}
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		log.Printf("Invalid log level: %s. Defaulting to info.\n", level)
		logLevel = slog.LevelInfo
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(logHandler)
}
