package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
)

const (
	EnvEmail    = "QUOTEX_EMAIL"
	EnvPassword = "QUOTEX_PASSWORD"
	EnvDryRun   = "QUOTEX_DRY_RUN"
	EnvLogLevel = "QUOTEX_LOG_LEVEL"
)

// ApplyEnv loads the given dotenv files (missing files are skipped) into the process
// environment and overlays any QUOTEX_* variables onto c. Variables already set in the
// environment win over values from the files.
func (c *Config) ApplyEnv(files ...string) error {
	existing := make([]string, 0, len(files))

	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return errors.Wrap(errors.ErrCodeConfigValidation, "failed to load env file", err)
		}
	}

	if v, ok := os.LookupEnv(EnvEmail); ok {
		c.Email = v
	}

	if v, ok := os.LookupEnv(EnvPassword); ok {
		c.Password = v
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}

	if v, ok := os.LookupEnv(EnvDryRun); ok && v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeConfigValidation, err, "invalid %s value %q", EnvDryRun, v)
		}

		c.DryRun = dryRun
	}

	return nil
}
