package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rxtech-lab/quotex-connect/internal/config"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/version"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"github.com/stretchr/testify/suite"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

type CLITestSuite struct {
	suite.Suite
	dir string
	out *bytes.Buffer
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func (suite *CLITestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
	suite.out = &bytes.Buffer{}

	for _, key := range []string{config.EnvEmail, config.EnvPassword, config.EnvDryRun, config.EnvLogLevel, "QUOTEX_CONFIG"} {
		suite.T().Setenv(key, "")
		suite.Require().NoError(os.Unsetenv(key))
	}
}

// run executes the CLI with an isolated env file and the given arguments.
func (suite *CLITestSuite) run(args ...string) error {
	cmd := newCommand()
	cmd.Writer = suite.out
	cmd.ErrWriter = &bytes.Buffer{}

	full := append([]string{"quotex", "--env-file", filepath.Join(suite.dir, "missing.env"), "--log-level", "error"}, args...)

	return cmd.Run(context.Background(), full)
}

func (suite *CLITestSuite) TestVersion() {
	suite.Require().NoError(suite.run("version"))
	suite.Contains(suite.out.String(), version.GetVersion())
	suite.Contains(suite.out.String(), version.ConfigFormat)
}

func (suite *CLITestSuite) TestSchema() {
	suite.Require().NoError(suite.run("schema"))
	suite.Contains(suite.out.String(), "ping_interval")
	suite.Contains(suite.out.String(), "request_queue_maxsize")
}

func (suite *CLITestSuite) TestInitWritesLoadableConfig() {
	path := filepath.Join(suite.dir, "quotex.yaml")

	suite.Require().NoError(suite.run("init", "--output", path))
	suite.Contains(suite.out.String(), config.EnvPassword)

	loaded, err := config.Load(path)
	suite.Require().NoError(err)
	suite.True(loaded.DryRun)
	suite.NoError(loaded.Validate())

	err = suite.run("init", "--output", path)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeConfigValidation))

	suite.NoError(suite.run("init", "--output", path, "--force"))
}

func (suite *CLITestSuite) TestLiveModeIsRejected() {
	err := suite.run("run", "--duration", "10ms")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeConfigValidation))
	suite.Contains(err.Error(), "dry_run")
}

func (suite *CLITestSuite) TestNewAppRequiresDryRun() {
	cfg := config.Default()
	cfg.Email = "trader@example.com"
	cfg.Password = "secret"

	_, err := newApp(cfg, logger.NewNopLogger())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeConfigValidation))
	suite.Contains(err.Error(), config.EnvDryRun)
}

func (suite *CLITestSuite) TestInvalidConfigFileIsRejected() {
	path := filepath.Join(suite.dir, "bad.yaml")

	cfg := config.Default()
	cfg.Queue.NumWorkers = 0

	data, err := yaml.Marshal(cfg)
	suite.Require().NoError(err)
	suite.Require().NoError(os.WriteFile(path, data, 0o600))

	err = suite.run("--config", path, "--dry-run", "run", "--duration", "10ms")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeConfigValidation))
}

func (suite *CLITestSuite) TestDryRunForDuration() {
	start := time.Now()

	suite.Require().NoError(suite.run("--dry-run", "run", "--listen", "127.0.0.1:0", "--duration", "100ms"))
	suite.Less(time.Since(start), 10*time.Second)
}

func (suite *CLITestSuite) TestDemo() {
	err := suite.run("--dry-run", "run", "--demo",
		"--trades", "2", "--trade-duration", "1", "--stream-for", "50ms")
	suite.Require().NoError(err)

	out := suite.out.String()
	suite.Contains(out, "Balance: 10000.00")
	suite.Contains(out, "Best assets:")
	suite.Contains(out, "Reconnected (session 2)")
	suite.Equal(2, strings.Count(out, "Trade "))
	suite.Contains(out, "1 reconnects")
	suite.Contains(out, "trades      2")
}

func (suite *CLITestSuite) TestLoadConfigPrecedence() {
	path := filepath.Join(suite.dir, "quotex.yaml")

	cfg := config.Default()
	cfg.LogLevel = "warn"
	cfg.Queue.NumWorkers = 5
	suite.Require().NoError(cfg.Save(path))

	envFile := filepath.Join(suite.dir, ".env")
	suite.Require().NoError(os.WriteFile(envFile, []byte("QUOTEX_EMAIL=trader@example.com\n"), 0o600))

	var loaded *config.Config

	cmd := newCommand()
	cmd.Commands = append(cmd.Commands, newProbeCommand(&loaded))
	cmd.Writer = suite.out

	err := cmd.Run(context.Background(), []string{
		"quotex", "--config", path, "--env-file", envFile, "--dry-run", "--log-level", "debug", "probe",
	})
	suite.Require().NoError(err)
	suite.Require().NotNil(loaded)

	suite.Equal(5, loaded.Queue.NumWorkers)
	suite.Equal("trader@example.com", loaded.Email)
	suite.True(loaded.DryRun)
	suite.Equal("debug", loaded.LogLevel)
}

// newProbeCommand captures the resolved configuration.
func newProbeCommand(out **config.Config) *cli.Command {
	return &cli.Command{
		Name: "probe",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			*out = cfg

			return err
		},
	}
}

func (suite *CLITestSuite) TestNewAppWiresComponents() {
	cfg := config.Default()
	cfg.DryRun = true

	a, err := newApp(cfg, logger.NewNopLogger())
	suite.Require().NoError(err)

	ctx := context.Background()
	suite.Require().NoError(a.start(ctx))

	snapshot := a.status.Snapshot()
	suite.Equal("connected", snapshot.Connection.State.String())
	suite.NotNil(snapshot.Watchdog)
	suite.True(snapshot.Watchdog.IsRunning)
	suite.NotNil(snapshot.Queue)
	suite.True(snapshot.Queue.IsRunning)
	suite.NotNil(snapshot.Assets)
	suite.Positive(snapshot.Assets.AvailableAssets)

	suite.NoError(a.shutdown(ctx))
	suite.False(a.queue.Stats().IsRunning)
	suite.False(a.watchdog.Stats().IsRunning)
}
