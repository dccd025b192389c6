package pairing

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser asks the OS to open url in the default browser. Best-effort:
// a failure (headless host, unsupported platform, spawn error) is non-fatal
// and the caller falls back to printing the URL for manual navigation.
// Never blocks on the spawned process.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.Command("xdg-open", url)
	default:
		return fmt.Errorf("no known browser launcher for %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	// Reap the child in the background so it doesn't linger as a zombie.
	go func() { _ = cmd.Wait() }()

	return nil
}
