package browser

import (
	"os/exec"

	"github.com/nulljosh/claimcheck/internal/logger"
)

// Common Chrome/Chromium binary names across different systems
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	// macOS paths
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	// Common Linux paths
	"/usr/bin/google-chrome-stable",
	"/usr/bin/google-chrome",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
	// Windows paths
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// Reduced-footprint binaries used on constrained serverless hosts, probed
// before the regular names when constrained mode is on.
var constrainedBinaryNames = []string{
	"headless-chromium",
	"headless_shell",
	"/opt/chromium/chromium",
	"/tmp/chromium",
}

// FindChromePath searches for a Chrome/Chromium binary on the system.
// It first tries PATH lookup, then checks common installation locations.
// Returns empty string if no Chrome binary is found.
func FindChromePath(constrained bool) string {
	names := chromeBinaryNames
	if constrained {
		names = append(append([]string{}, constrainedBinaryNames...), chromeBinaryNames...)
	}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "name", name, "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found - portal automation will not work")
	return ""
}
