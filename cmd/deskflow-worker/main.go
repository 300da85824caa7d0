package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/deskflow/pkg/cmd"
	"github.com/dukex/deskflow/pkg/dispatcher"
	"github.com/dukex/deskflow/pkg/log"
	"github.com/dukex/deskflow/pkg/worker"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "deskflow-worker"

func main() {
	app := &cli.Command{
		Name:                  serviceName,
		EnableShellCompletion: true,
		Usage:                 "Consume queued triggers and run matching playbooks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
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
				Value:   dispatcher.DefaultActionTimeout,
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
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule(serviceName).With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing Deskflow Worker")

			tracer, shutdown := cmd.NewTracer(ctx, logger, serviceName, command.Bool("tracing"))
			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), serviceName, logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
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

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err := worker.New(workerID, orchestrator, eventBus, logger).Start(runCtx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)

				return err
			}

			<-runCtx.Done()
			logger.InfoContext(ctx, "Shutting down worker...")

			return nil
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
