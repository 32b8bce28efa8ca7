package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
)

// CheckConfigCompatibility checks whether a config file written for configVersion can be
// loaded by a binary at binaryVersion.
//
// Rules:
//   - an empty config version is treated as current (older files did not carry one)
//   - "main" on either side skips the check (development builds)
//   - major and minor must match, patch may differ
//
// Examples:
//   - binary 0.4.0, config 0.4.2 -> OK
//   - binary 0.5.0, config 0.4.0 -> ERROR (minor differs)
//   - binary 1.0.0, config 0.4.0 -> ERROR (major differs)
func CheckConfigCompatibility(binaryVersion, configVersion string) error {
	binaryVersion = strings.TrimPrefix(binaryVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if configVersion == "" {
		return nil
	}

	if binaryVersion == "main" || configVersion == "main" {
		return nil
	}

	binarySemver, err := semver.NewVersion(binaryVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid binary version '%s'", binaryVersion)
	}

	configSemver, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid config version '%s'", configVersion)
	}

	if binarySemver.Major() != configSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: binary is %d.x.x but config requires %d.x.x",
			binarySemver.Major(), configSemver.Major())
	}

	if binarySemver.Minor() != configSemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: binary is %d.%d.x but config requires %d.%d.x",
			binarySemver.Major(), binarySemver.Minor(),
			configSemver.Major(), configSemver.Minor())
	}

	return nil
}
