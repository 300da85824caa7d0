package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/deskflow/pkg/cmd"
	"github.com/dukex/deskflow/pkg/log"
	"github.com/dukex/deskflow/pkg/scheduler"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "deskflow-scheduler"

func main() {
	app := &cli.Command{
		Name:                  serviceName,
		EnableShellCompletion: true,
		Usage:                 "Publish triggers for scheduled playbooks",
		Flags: []cli.Flag{
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
			&cli.DurationFlag{
				Name:    "refresh-interval",
				Usage:   "How often scheduled playbooks are reloaded",
				Value:   scheduler.DefaultRefreshInterval,
				Sources: cli.EnvVars("SCHEDULE_REFRESH_INTERVAL"),
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

			logger := log.WithModule(serviceName)

			logger.InfoContext(ctx, "Initializing Deskflow Scheduler")

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

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s := scheduler.New(persistence.PlaybookRepository(), eventBus, logger,
				scheduler.WithRefreshInterval(command.Duration("refresh-interval")),
			)

			err := s.Start(runCtx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start scheduler", "error", err)

				return err
			}

			<-runCtx.Done()
			s.Stop()

			return nil
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
