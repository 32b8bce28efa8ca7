// Package config defines the runtime configuration of quotex-connect: credentials, watchdog
// cadence and back-off, queue sizing, and the optional session, asset and status settings.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/quotex-connect/internal/version"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Version  string `yaml:"version" json:"version" jsonschema:"title=Version,description=Config format version"`
	Email    string `yaml:"email" json:"email" jsonschema:"title=Email,description=Account email (prefer QUOTEX_EMAIL)"`
	Password string `yaml:"password" json:"password" jsonschema:"title=Password,description=Account password (prefer QUOTEX_PASSWORD)"`
	DryRun   bool   `yaml:"dry_run" json:"dry_run" jsonschema:"title=Dry Run,description=Use the simulated transport"`
	LogLevel string `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`

	Watchdog WatchdogConfig `yaml:"watchdog" json:"watchdog"`
	Queue    QueueConfig    `yaml:"queue" json:"queue"`
	Session  SessionConfig  `yaml:"session" json:"session"`
	Assets   AssetsConfig   `yaml:"assets" json:"assets"`
	Status   StatusConfig   `yaml:"status" json:"status"`
}

// WatchdogConfig controls health pings and reconnection back-off.
type WatchdogConfig struct {
	PingInterval time.Duration `yaml:"ping_interval" json:"ping_interval" jsonschema:"title=Ping Interval,description=Time between health pings" validate:"gt=0"`
	PingTimeout  time.Duration `yaml:"ping_timeout" json:"ping_timeout" jsonschema:"title=Ping Timeout,description=Maximum wait for a ping reply" validate:"gt=0"`
	// FailureThreshold is the number of consecutive failed pings that starts a reconnection.
	FailureThreshold         int           `yaml:"failure_threshold" json:"failure_threshold" jsonschema:"title=Failure Threshold,minimum=1" validate:"gte=1"`
	ReconnectMaxRetries      int           `yaml:"reconnect_max_retries" json:"reconnect_max_retries" jsonschema:"title=Max Retries,minimum=1" validate:"gte=1"`
	ReconnectBaseDelay       time.Duration `yaml:"reconnect_base_delay" json:"reconnect_base_delay" jsonschema:"title=Base Delay" validate:"gt=0"`
	ReconnectMaxDelay        time.Duration `yaml:"reconnect_max_delay" json:"reconnect_max_delay" jsonschema:"title=Max Delay" validate:"gt=0"`
	ReconnectExponentialBase float64       `yaml:"reconnect_exponential_base" json:"reconnect_exponential_base" jsonschema:"title=Exponential Base,minimum=1" validate:"gte=1"`
}

// QueueConfig controls the request queue and its worker pool.
type QueueConfig struct {
	MaxSize            int           `yaml:"request_queue_maxsize" json:"request_queue_maxsize" jsonschema:"title=Queue Size,description=Capacity of each request category,minimum=1" validate:"gte=1"`
	CallbackTimeout    time.Duration `yaml:"callback_timeout" json:"callback_timeout" jsonschema:"title=Callback Timeout,description=Per-request execution bound" validate:"gt=0"`
	NumWorkers         int           `yaml:"num_workers" json:"num_workers" jsonschema:"title=Workers,minimum=1" validate:"gte=1"`
	TradeResultTimeout time.Duration `yaml:"trade_result_timeout" json:"trade_result_timeout" jsonschema:"title=Trade Result Timeout,description=Extra wait after trade expiry" validate:"gt=0"`
	StreamPollInterval time.Duration `yaml:"stream_poll_interval" json:"stream_poll_interval" jsonschema:"title=Stream Poll Interval" validate:"gt=0"`
	InitialCandles     int           `yaml:"initial_candles" json:"initial_candles" jsonschema:"title=Initial Candles,description=Candles fetched when subscribing,minimum=1" validate:"gte=1"`
}

// SessionConfig controls account bookkeeping.
type SessionConfig struct {
	BalanceUpdateInterval time.Duration `yaml:"balance_update_interval" json:"balance_update_interval" jsonschema:"title=Balance Update Interval" validate:"gt=0"`
	DefaultStake          float64       `yaml:"default_stake" json:"default_stake" jsonschema:"title=Default Stake" validate:"gt=0"`
}

// AssetsConfig controls asset selection.
type AssetsConfig struct {
	MinPayout       float64       `yaml:"min_payout" json:"min_payout" jsonschema:"title=Minimum Payout,minimum=0,maximum=100" validate:"gte=0,lte=100"`
	PreferredAssets []string      `yaml:"preferred_assets" json:"preferred_assets" jsonschema:"title=Preferred Assets" validate:"dive,required"`
	UpdateInterval  time.Duration `yaml:"update_interval" json:"update_interval" jsonschema:"title=Update Interval" validate:"gt=0"`
}

// StatusConfig controls the HTTP status server. An empty address disables it.
type StatusConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr" jsonschema:"title=Listen Address,description=host:port for /healthz /stats /metrics" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Version:  version.ConfigFormat,
		Email:    "",
		Password: "",
		DryRun:   false,
		LogLevel: "info",
		Watchdog: DefaultWatchdog(),
		Queue:    DefaultQueue(),
		Session: SessionConfig{
			BalanceUpdateInterval: 5 * time.Second,
			DefaultStake:          1.0,
		},
		Assets: AssetsConfig{
			MinPayout:       80,
			PreferredAssets: []string{"EURUSD", "GBPUSD", "USDJPY"},
			UpdateInterval:  60 * time.Second,
		},
		Status: StatusConfig{
			ListenAddr: "",
		},
	}
}

func DefaultWatchdog() WatchdogConfig {
	return WatchdogConfig{
		PingInterval:             30 * time.Second,
		PingTimeout:              10 * time.Second,
		FailureThreshold:         1,
		ReconnectMaxRetries:      10,
		ReconnectBaseDelay:       1 * time.Second,
		ReconnectMaxDelay:        300 * time.Second,
		ReconnectExponentialBase: 2.0,
	}
}

func DefaultQueue() QueueConfig {
	return QueueConfig{
		MaxSize:            100,
		CallbackTimeout:    30 * time.Second,
		NumWorkers:         3,
		TradeResultTimeout: 30 * time.Second,
		StreamPollInterval: 1 * time.Second,
		InitialCandles:     100,
	}
}

// Load reads a YAML file over the defaults and checks its format version.
// Fields missing from the file keep their default value. Load does not call Validate:
// credentials usually arrive later through ApplyEnv.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeConfigValidation, err, "failed to read config file '%s'", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigValidation, "failed to parse config from YAML", err)
	}

	if err := version.CheckConfigCompatibility(version.GetVersion(), cfg.Version); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigValidation, "failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(errors.ErrCodeConfigValidation, err, "failed to write config file '%s'", path)
	}

	return nil
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeConfigValidation, "invalid config", err)
	}

	if !c.DryRun && (c.Email == "" || c.Password == "") {
		return errors.New(errors.ErrCodeConfigValidation, "email and password are required unless dry_run is set")
	}

	if err := c.Watchdog.validateRelations(); err != nil {
		return err
	}

	return nil
}

// Validate checks the watchdog settings on their own.
func (c WatchdogConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeConfigValidation, "invalid watchdog config", err)
	}

	return c.validateRelations()
}

func (c WatchdogConfig) validateRelations() error {
	if c.ReconnectBaseDelay > c.ReconnectMaxDelay {
		return errors.Newf(errors.ErrCodeConfigValidation,
			"reconnect_base_delay (%s) must not exceed reconnect_max_delay (%s)",
			c.ReconnectBaseDelay, c.ReconnectMaxDelay)
	}

	return nil
}

// Validate checks the queue settings on their own.
func (c QueueConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeConfigValidation, "invalid queue config", err)
	}

	return nil
}
