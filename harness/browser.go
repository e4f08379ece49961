package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Launcher starts a browser process.
type Launcher interface {
	Launch(ctx context.Context, headless bool) (Browser, error)
}

// Browser is a running browser process owned by one trial.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	// Close shuts the browser down and waits for the process to exit.
	Close() error
}

// Page is a single browser tab.
type Page interface {
	// Navigate loads url and returns once the browser reports the load
	// event.
	Navigate(ctx context.Context, url string) error
}

// ErrBrowserNotFound is returned when no Chrome or Chromium executable can
// be located.
var ErrBrowserNotFound = errors.New("no chrome or chromium executable found")

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// KnownBrowsers returns the executable names and install locations
// searched, in order, when no explicit path is configured. Stripped
// headless_shell builds are excluded since they cannot run headful.
func KnownBrowsers() []string {
	return []string{
		// Unix-like
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"google-chrome-beta",
		"google-chrome-unstable",
		"/usr/bin/google-chrome",
		"/snap/bin/chromium",

		// Windows
		"chrome",
		"chrome.exe",
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		filepath.Join(os.Getenv("USERPROFILE"),
			`AppData\Local\Google\Chrome\Application\chrome.exe`),

		// Mac
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	}
}

// ResolveExecPath returns the browser executable to launch. An explicit
// path must exist; otherwise the first of KnownBrowsers found wins.
func ResolveExecPath(explicit string) (string, error) {
	if explicit != "" {
		path, err := lookPath(explicit)
		if err != nil {
			return "", fmt.Errorf("browser %s: %w", explicit, err)
		}

		return path, nil
	}

	for _, candidate := range KnownBrowsers() {
		if path, err := lookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", ErrBrowserNotFound
}
