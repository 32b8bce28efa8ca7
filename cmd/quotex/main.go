package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxtech-lab/quotex-connect/internal/config"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/version"
	"github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "quotex",
		Usage:   "Resilient trading API client: connection watchdog, request queue and status surface",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (defaults are used when empty)",
				Sources: cli.EnvVars("QUOTEX_CONFIG"),
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Dotenv files with QUOTEX_* credentials; missing files are skipped",
				Value: []string{".env"},
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Use the simulated transport (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides the config file)",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			dashboardCommand(),
			schemaCommand(),
			initCommand(),
			versionCommand(),
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration: defaults or file, then dotenv and environment,
// then command-line overrides. The result is validated.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()

	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if err := cfg.ApplyEnv(cmd.StringSlice("env-file")...); err != nil {
		return nil, err
	}

	if cmd.IsSet("dry-run") {
		cfg.DryRun = cmd.Bool("dry-run")
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.NewLoggerWithLevel(cfg.LogLevel)
}
