package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Connect, supervise the connection and serve the status endpoints until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Status server address, e.g. 127.0.0.1:8090 (overrides the config file)",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Stop after this long (0 runs until interrupted)",
			},
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "Run the scripted demo: candles, a forced reconnection and parallel trades",
			},
			&cli.IntFlag{
				Name:  "trades",
				Usage: "Number of parallel trades placed by the demo",
				Value: 3,
			},
			&cli.IntFlag{
				Name:  "trade-duration",
				Usage: "Expiry in seconds of the demo trades",
				Value: 2,
			},
			&cli.DurationFlag{
				Name:  "stream-for",
				Usage: "How long the demo watches candles before and after the forced reconnection",
				Value: 2 * time.Second,
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if listen := cmd.String("listen"); listen != "" {
		cfg.Status.ListenAddr = listen
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err = multierr.Append(err, a.shutdown(shutdownCtx))
	}()

	if err := a.start(ctx); err != nil {
		return err
	}

	if cmd.Bool("demo") {
		return runDemo(ctx, a, demoOptions{
			Trades:        int(cmd.Int("trades")),
			TradeDuration: int(cmd.Int("trade-duration")),
			StreamFor:     cmd.Duration("stream-for"),
			Out:           cmd.Root().Writer,
		})
	}

	if d := cmd.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	<-ctx.Done()
	log.Info("Stopping", zap.NamedError("reason", context.Cause(ctx)))

	return nil
}
