package version

import (
	"testing"

	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		binaryVersion string
		configVersion string
		expectError   bool
		errorContains string
	}{
		{
			name:          "exact match",
			binaryVersion: "0.4.0",
			configVersion: "0.4.0",
		},
		{
			name:          "config patch higher",
			binaryVersion: "0.4.0",
			configVersion: "0.4.3",
		},
		{
			name:          "v prefix on both",
			binaryVersion: "v0.4.1",
			configVersion: "v0.4.0",
		},
		{
			name:          "empty config version",
			binaryVersion: "0.4.0",
			configVersion: "",
		},
		{
			name:          "binary is main",
			binaryVersion: "main",
			configVersion: "9.9.9",
		},
		{
			name:          "config is main",
			binaryVersion: "0.4.0",
			configVersion: "main",
		},
		{
			name:          "prerelease binary",
			binaryVersion: "0.4.0-rc1",
			configVersion: "0.4.0",
		},
		{
			name:          "minor differs",
			binaryVersion: "0.5.0",
			configVersion: "0.4.0",
			expectError:   true,
			errorContains: "minor version mismatch",
		},
		{
			name:          "major differs",
			binaryVersion: "1.0.0",
			configVersion: "0.4.0",
			expectError:   true,
			errorContains: "major version mismatch",
		},
		{
			name:          "invalid binary version",
			binaryVersion: "not-a-version",
			configVersion: "0.4.0",
			expectError:   true,
			errorContains: "invalid binary version",
		},
		{
			name:          "invalid config version",
			binaryVersion: "0.4.0",
			configVersion: "four",
			expectError:   true,
			errorContains: "invalid config version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tt.binaryVersion, tt.configVersion)

			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeVersionMismatch))
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}

func TestDefaultConfigFormatMatchesBinary(t *testing.T) {
	require.NoError(t, CheckConfigCompatibility(Version, ConfigFormat))
}
