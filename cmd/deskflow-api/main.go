package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:                  "deskflow-api",
		Usage:                 "Manage playbooks and evaluate triggers",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunAPICommand(),
			ImportCommand(),
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
