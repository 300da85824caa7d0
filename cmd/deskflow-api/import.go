package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/deskflow/pkg/cmd"
	"github.com/dukex/deskflow/pkg/config"
	"github.com/dukex/deskflow/pkg/log"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/dukex/deskflow/pkg/registry"
	"github.com/dukex/deskflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

var errMissingFile = errors.New("a playbooks file is required")

func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Aliases:   []string{"i"},
		Usage:     "Create the playbooks of a YAML file for a user",
		ArgsUsage: "<playbooks.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user-id",
				Usage:    "Owner of the imported playbooks",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing action plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), "text")

			logger := log.WithModule("import")

			path := command.Args().First()
			if path == "" {
				return errMissingFile
			}

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			created, err := importPlaybooks(ctx, logger, persistence, registry, command.String("user-id"), path)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Playbooks imported", "count", created, "path", path)

			return nil
		},
	}
}

// importPlaybooks validates every playbook of the file before creating any of them.
func importPlaybooks(
	ctx context.Context,
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	userID, path string,
) (int, error) {
	playbooks, err := config.LoadPlaybooks(path)
	if err != nil {
		return 0, err
	}

	service := services.NewPlaybooks(store, reg)

	for _, playbook := range playbooks {
		playbook.UserID = userID

		if err := service.Validate(playbook); err != nil {
			return 0, fmt.Errorf("playbook %q: %w", playbook.Name, err)
		}
	}

	for _, playbook := range playbooks {
		created, err := service.Create(ctx, userID, playbook)
		if err != nil {
			return 0, fmt.Errorf("playbook %q: %w", playbook.Name, err)
		}

		logger.InfoContext(ctx, "Created playbook", "playbook_id", created.ID, "name", created.Name)
	}

	return len(playbooks), nil
}
