package version

// Version is the current version of quotex-connect.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/quotex-connect/internal/version.Version=1.2.3"
// The value "main" indicates a development build.
var Version = "v0.4.0"

// ConfigFormat is the config file format version written by `quotex init` and Default().
const ConfigFormat = "0.4.0"

// GetVersion returns the current version of the binary.
func GetVersion() string {
	return Version
}
