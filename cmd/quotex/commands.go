package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxtech-lab/quotex-connect/internal/config"
	"github.com/rxtech-lab/quotex-connect/internal/version"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"github.com/urfave/cli/v3"
)

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the config file",
		Action: func(_ context.Context, cmd *cli.Command) error {
			schema, err := config.GetConfigSchema()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.Root().Writer, schema)

			return nil
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a config file with the default settings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Config file to write",
				Value:   "quotex.yaml",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing file",
			},
		},
		Action: initAction,
	}
}

func initAction(_ context.Context, cmd *cli.Command) error {
	output := cmd.String("output")

	if _, err := os.Stat(output); err == nil && !cmd.Bool("force") {
		return errors.Newf(errors.ErrCodeConfigValidation, "%s already exists, use --force to overwrite", output)
	}

	cfg := config.Default()
	cfg.DryRun = true

	if err := cfg.Save(output); err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "Wrote %s (credentials belong in %s and %s)\n",
		output, config.EnvEmail, config.EnvPassword)

	return nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the binary version and the config format it reads",
		Action: func(_ context.Context, cmd *cli.Command) error {
			fmt.Fprintf(cmd.Root().Writer, "quotex %s (config format %s)\n", version.GetVersion(), version.ConfigFormat)

			return nil
		},
	}
}
