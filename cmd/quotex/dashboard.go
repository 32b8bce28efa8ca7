package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/status"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
)

func dashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Live terminal view of connection, watchdog, queue and session stats",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Base URL of a running status server; when empty a client is started in-process",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Refresh interval",
				Value: time.Second,
			},
		},
		Action: dashboardAction,
	}
}

func dashboardAction(ctx context.Context, cmd *cli.Command) (err error) {
	interval := cmd.Duration("interval")
	if interval <= 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "interval must be positive")
	}

	if url := cmd.String("url"); url != "" {
		return runDashboard(NewModel(remoteFetcher(url), interval, url))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// the terminal belongs to the dashboard
	a, err := newApp(cfg, logger.NewNopLogger())
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

	fetch := func(context.Context) (status.Stats, error) {
		return a.status.Snapshot(), nil
	}

	return runDashboard(NewModel(fetch, interval, "in-process"))
}

func runDashboard(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}

	return nil
}

// remoteFetcher reads /stats from a status server.
func remoteFetcher(baseURL string) FetchFunc {
	endpoint := strings.TrimRight(baseURL, "/") + "/stats"
	client := &http.Client{Timeout: 10 * time.Second} //nolint:exhaustruct

	return func(ctx context.Context) (status.Stats, error) {
		var stats status.Stats

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return stats, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid status URL", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return stats, errors.Wrap(errors.ErrCodeTransport, "failed to fetch stats", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return stats, errors.Newf(errors.ErrCodeTransport, "status server answered %s", resp.Status)
		}

		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			return stats, errors.Wrap(errors.ErrCodeTransport, "failed to decode stats", err)
		}

		return stats, nil
	}
}
