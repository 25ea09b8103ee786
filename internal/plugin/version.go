package plugin

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Host version information.
const (
	// ServerVersion is the running bridgehost release.
	ServerVersion = "1.3.0"

	// APIVersion is the plugin API contract version.
	APIVersion = "1.1"
)

// Engine and dependency names the gate checks for.
const (
	// hostPackage is the engines key plugins use to declare supported
	// host versions, and the dependency name of a bundled host copy.
	hostPackage = "bridgehost"

	// protocolPackage is the protocol engine's package name. Plugins must
	// consume it through the host, never bundle it.
	protocolPackage = "hap"

	// runtimeEngine is the engines key for the Go runtime.
	runtimeEngine = "go"
)

// runtimeVersion reports the running Go version in semver form, or "" when
// it cannot be determined (development toolchains).
func runtimeVersion() string {
	v := strings.TrimPrefix(runtime.Version(), "go")
	if _, err := semver.NewVersion(v); err != nil {
		return ""
	}
	return v
}

// satisfies reports whether version matches the declared range. Prerelease
// versions are included: a prerelease of an otherwise matching version
// satisfies the range, matching the lenient npm-style check plugins expect.
func satisfies(rangeStr, version string) (bool, error) {
	c, err := semver.NewConstraint(rangeStr)
	if err != nil {
		return false, fmt.Errorf("invalid version range %q: %w", rangeStr, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", version, err)
	}
	if c.Check(v) {
		return true, nil
	}
	if v.Prerelease() != "" {
		released, err := v.SetPrerelease("")
		if err == nil && c.Check(&released) {
			return true, nil
		}
	}
	return false, nil
}
