package main

import (
	"context"

	"github.com/rxtech-lab/quotex-connect/internal/assets"
	"github.com/rxtech-lab/quotex-connect/internal/config"
	"github.com/rxtech-lab/quotex-connect/internal/connection"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/metrics"
	"github.com/rxtech-lab/quotex-connect/internal/queue"
	"github.com/rxtech-lab/quotex-connect/internal/session"
	"github.com/rxtech-lab/quotex-connect/internal/status"
	"github.com/rxtech-lab/quotex-connect/internal/transport"
	"github.com/rxtech-lab/quotex-connect/internal/version"
	"github.com/rxtech-lab/quotex-connect/internal/watchdog"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// app is the assembled client: one connection supervised by the watchdog and driven
// through the request queue.
type app struct {
	cfg *config.Config
	log *logger.Logger

	transport *transport.SimulatedTransport
	handle    *connection.Handle
	watchdog  *watchdog.Watchdog
	queue     *queue.RequestQueue
	session   *session.Session
	assets    *assets.Selector
	status    *status.Server
}

func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	if !cfg.DryRun {
		return nil, errors.Newf(errors.ErrCodeConfigValidation,
			"no live transport is linked into this binary; set dry_run or %s=true", config.EnvDryRun)
	}

	sim := transport.NewSimulatedTransport(transport.DefaultSimulatedConfig())

	// room for every worker plus concurrent candle polls
	handle := connection.NewHandle(sim, cfg.Queue.NumWorkers*2, log)

	wd, err := watchdog.New(handle, cfg.Watchdog, log)
	if err != nil {
		return nil, err
	}

	q, err := queue.New(handle, cfg.Queue, log)
	if err != nil {
		return nil, err
	}

	sess := session.New(q, cfg.Session, log)
	selector := assets.New(q, cfg.Assets, log)

	a := &app{
		cfg:       cfg,
		log:       log,
		transport: sim,
		handle:    handle,
		watchdog:  wd,
		queue:     q,
		session:   sess,
		assets:    selector,
		status:    nil,
	}

	wd.OnReconnect(q.ResubscribeAll)
	wd.OnReconnect(sess.UpdateBalance)
	wd.OnReconnect(selector.Refresh)
	wd.OnFailure(func(err error) {
		log.Error("Connection lost for good, restart the client or force a reconnect", zap.Error(err))
	})

	registry := metrics.NewRegistry(metrics.Sources{
		Connection: handle,
		Watchdog:   wd,
		Queue:      q,
		Session:    sess,
	})

	a.status = status.NewServer(a.statusSources(), registry, version.GetVersion(), log)

	return a, nil
}

func (a *app) statusSources() status.Sources {
	return status.Sources{
		Connection: a.handle,
		Watchdog:   a.watchdog,
		Queue:      a.queue,
		Session:    a.session,
		Assets:     a.assets,
		Candles:    a.queue,
	}
}

// start connects and brings every component up. On error the caller still calls shutdown.
func (a *app) start(ctx context.Context) error {
	if err := a.handle.Connect(ctx); err != nil {
		return err
	}

	if err := a.queue.Start(ctx); err != nil {
		return err
	}

	if err := a.session.Initialize(ctx); err != nil {
		return err
	}

	if err := a.assets.Refresh(ctx); err != nil {
		return err
	}

	a.watchdog.Start(ctx)
	a.session.StartAutoUpdate(ctx)
	a.assets.StartAutoUpdate(ctx)

	if a.cfg.Status.ListenAddr != "" {
		if err := a.status.Start(a.cfg.Status.ListenAddr); err != nil {
			return err
		}
	}

	a.log.Info("Client started",
		zap.String("version", version.GetVersion()),
		zap.Bool("dry_run", a.cfg.DryRun),
	)

	return nil
}

// shutdown stops the components in reverse order and reports every failure.
func (a *app) shutdown(ctx context.Context) error {
	var errs error

	errs = multierr.Append(errs, a.status.Stop(ctx))

	a.assets.StopAutoUpdate()
	a.session.StopAutoUpdate()
	a.watchdog.Stop()

	errs = multierr.Append(errs, a.queue.Stop(ctx))
	errs = multierr.Append(errs, a.handle.Disconnect(ctx))

	if errs != nil {
		a.log.Warn("Shutdown finished with errors", zap.Int("errors", len(multierr.Errors(errs))), zap.Error(errs))
	} else {
		a.log.Info("Client stopped")
	}

	return errs
}
