package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckConfigCompatibility checks if a persisted strategy configuration's
// schema version is compatible with the engine's schema version.
// Returns nil if compatible, error with details if not.
//
// Compatibility rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor and patch versions can differ (new optional fields are additive)
//
// Examples:
//   - Engine 1.0.0, Config 1.0.0 -> OK (exact match)
//   - Engine 1.2.0, Config 1.0.3 -> OK (minor/patch differ)
//   - Engine 2.0.0, Config 1.0.0 -> ERROR (major differs)
func CheckConfigCompatibility(engineVersion, configVersion string) error {
	// Strip 'v' prefix if present for consistency
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	// Skip version check for "main" (development builds)
	if engineVersion == "main" || configVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine config version '%s': %w", engineVersion, err)
	}

	configSemver, err := semver.NewVersion(configVersion)
	if err != nil {
		return fmt.Errorf("invalid config version '%s': %w", configVersion, err)
	}

	if engineSemver.Major() != configSemver.Major() {
		return fmt.Errorf("major version mismatch: engine understands %d.x.x but config declares %d.x.x",
			engineSemver.Major(), configSemver.Major())
	}

	return nil
}
