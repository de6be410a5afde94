package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/flotilla/aggregate"
	"github.com/absmach/flotilla/coordinator"
	"github.com/absmach/flotilla/coordinator/api"
	"github.com/absmach/flotilla/coordinator/middleware"
	"github.com/absmach/flotilla/dataset"
	"github.com/absmach/flotilla/pkg/jaeger"
	"github.com/absmach/flotilla/pkg/mqtt"
	"github.com/absmach/flotilla/pkg/prometheus"
	"github.com/absmach/flotilla/pkg/server"
	httpserver "github.com/absmach/flotilla/pkg/server/http"
	"github.com/absmach/flotilla/pkg/storage"
	"github.com/absmach/flotilla/round"
	"github.com/absmach/flotilla/trainer"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "coordinator"
	defHTTPPort   = "5000"
	envPrefix     = "COORDINATOR_"
	envPrefixHTTP = "COORDINATOR_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel   string `env:"COORDINATOR_LOG_LEVEL"   envDefault:"info"`
	InstanceID string `env:"COORDINATOR_INSTANCE_ID"`

	ExpectedClients   int     `env:"COORDINATOR_EXPECTED_CLIENTS"   envDefault:"3"`
	TotalRounds       int     `env:"COORDINATOR_TOTAL_ROUNDS"       envDefault:"10"`
	AggregationMethod string  `env:"COORDINATOR_AGGREGATION_METHOD" envDefault:"fedavg"`
	MomentumBeta      float64 `env:"COORDINATOR_MOMENTUM_BETA"      envDefault:"0.9"`
	ServerLR          float64 `env:"COORDINATOR_SERVER_LR"          envDefault:"1.0"`
	NoiseSigma        float64 `env:"COORDINATOR_NOISE_SIGMA"        envDefault:"0"`

	ModelInputShape   []int   `env:"COORDINATOR_MODEL_INPUT_SHAPE"   envDefault:"8"`
	ModelNumClasses   int     `env:"COORDINATOR_MODEL_NUM_CLASSES"   envDefault:"4"`
	ModelLearningRate float64 `env:"COORDINATOR_MODEL_LEARNING_RATE" envDefault:"0.001"`
	InitSeed          int64   `env:"COORDINATOR_INIT_SEED"           envDefault:"42"`

	EvalDataset    string `env:"COORDINATOR_EVAL_DATASET"`
	CheckpointPath string `env:"COORDINATOR_CHECKPOINT_PATH"`
	RoundSchedule  string `env:"COORDINATOR_ROUND_SCHEDULE"`

	MQTTAddress string        `env:"COORDINATOR_MQTT_ADDRESS"`
	MQTTQoS     uint8         `env:"COORDINATOR_MQTT_QOS"     envDefault:"2"`
	MQTTTimeout time.Duration `env:"COORDINATOR_MQTT_TIMEOUT" envDefault:"30s"`

	OTELURL    url.URL `env:"COORDINATOR_OTEL_URL"`
	TraceRatio float64 `env:"COORDINATOR_TRACE_RATIO" envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	var pubsub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		ps, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName+"-"+cfg.InstanceID, "", cfg.MQTTTimeout, logger)
		if err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

			return
		}
		pubsub = ps
	}

	storageConfig := storage.Config{}
	if err := env.ParseWithOptions(&storageConfig, env.Options{Prefix: envPrefix}); err != nil {
		logger.Error("failed to load storage configuration", slog.String("error", err.Error()))

		return
	}
	metricsStore, closer, err := storage.NewMetricsStore(storageConfig)
	if err != nil {
		logger.Error("failed to initialize metrics store", slog.String("error", err.Error()))

		return
	}
	if closer != nil {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("error closing metrics store", slog.Any("error", err))
			}
		}()
	}

	var ckpts storage.CheckpointStore
	if cfg.CheckpointPath != "" {
		ckpts = storage.NewCheckpointStore(cfg.CheckpointPath)
	}

	method, err := aggregate.ParseMethod(cfg.AggregationMethod)
	if err != nil {
		logger.Error("failed to parse aggregation method", slog.String("error", err.Error()))

		return
	}
	aggCfg := aggregate.Config{
		Method: method,
		Beta:   cfg.MomentumBeta,
		Eta:    cfg.ServerLR,
		Sigma:  cfg.NoiseSigma,
	}

	modelCfg := round.ModelConfig{
		InputShape:   cfg.ModelInputShape,
		NumClasses:   cfg.ModelNumClasses,
		LearningRate: cfg.ModelLearningRate,
	}
	initial := trainer.Init(modelCfg, cfg.InitSeed)

	var evaluator coordinator.Evaluator
	if cfg.EvalDataset != "" {
		set, err := dataset.Load(cfg.EvalDataset)
		if err != nil {
			logger.Error("failed to load evaluation dataset", slog.String("error", err.Error()))

			return
		}
		set = dataset.ScaleMinMax(set)
		eval := trainer.New(set.X, set.Y, 1, 1, cfg.InitSeed)
		if err := eval.Configure(modelCfg); err != nil {
			logger.Error("evaluation dataset does not match model", slog.String("error", err.Error()))

			return
		}
		evaluator = eval
		logger.Info("evaluation dataset loaded",
			slog.String("path", cfg.EvalDataset),
			slog.Int("samples", set.Len()),
		)
	}

	svc, err := coordinator.NewService(
		coordinator.Config{
			ExpectedClients: cfg.ExpectedClients,
			TotalRounds:     cfg.TotalRounds,
			Model:           modelCfg,
			Aggregation:     aggCfg,
		},
		initial,
		aggregate.New(aggCfg),
		evaluator,
		metricsStore,
		ckpts,
		pubsub,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize coordinator service", slog.String("error", err.Error()))

		return
	}
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if cfg.RoundSchedule != "" {
		sched, err := coordinator.NewScheduler(svc, cfg.RoundSchedule, logger)
		if err != nil {
			logger.Error("failed to initialize round scheduler", slog.String("error", err.Error()))

			return
		}
		sched.Start()
		defer sched.Stop()
		logger.Info("round scheduler enabled", slog.String("schedule", cfg.RoundSchedule))
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
