package main

import (
	"context"

	"github.com/dukex/deskflow/pkg/cmd"
	"github.com/dukex/deskflow/pkg/dispatcher"
	"github.com/dukex/deskflow/pkg/log"
	"github.com/dukex/deskflow/pkg/worker"
	cli "github.com/urfave/cli/v3"
)

const (
	serviceName       = "deskflow-api"
	defaultPort       = 9091
	dispatcherTimeout = dispatcher.DefaultActionTimeout
)

func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres://... or a directory)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka broker addresses",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for trigger idempotency keys (disabled when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "action-timeout",
				Usage:   "Maximum duration of a single action",
				Value:   dispatcherTimeout,
				Sources: cli.EnvVars("ACTION_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing action plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing Deskflow API")

	tracer, shutdown := cmd.NewTracer(ctx, logger, serviceName, command.Bool("tracing"))
	defer func() {
		if err := shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}()

	registry := cmd.NewRegistry(logger, command.String("plugins-path"))

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBusType := command.String("event-bus")

	eventBus := cmd.NewEventBus(eventBusType, command.StringSlice("kafka-brokers"), serviceName, logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	orchestrator, closeGuard := cmd.NewOrchestrator(ctx, logger, persistence, registry, eventBus, cmd.EngineConfig{
		ActionTimeout: command.Duration("action-timeout"),
		RedisURL:      command.String("redis-url"),
		Tracer:        tracer,
	})
	defer func() {
		if err := closeGuard(); err != nil {
			logger.ErrorContext(ctx, "Failed to close idempotency guard", "error", err)
		}
	}()

	// The in-memory bus only reaches this process, so queued triggers are consumed here.
	if eventBusType == "gochannel" || eventBusType == "" {
		err := worker.New("api-embedded", orchestrator, eventBus, logger).Start(ctx)
		if err != nil {
			return err
		}
	}

	api := NewAPI(logger, persistence, registry, orchestrator, eventBus)

	err := api.Start(command.Int("port"))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to start API server", "error", err)
	}

	return err
}
