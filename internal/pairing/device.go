package pairing

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"
	"strings"
)

// DeviceInfo describes the machine requesting a pairing. Collected fresh
// per login attempt and never persisted.
type DeviceInfo struct {
	Platform  string
	Arch      string
	OSRelease string
	Hostname  string
	OSVersion string
}

// CollectDeviceInfo gathers best-effort information about this machine.
// Every field degrades to a stable placeholder rather than failing; the
// backend only needs the fingerprint to be consistent across runs.
func CollectDeviceInfo() DeviceInfo {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown-host"
	}

	platform := runtime.GOOS
	if platform == "darwin" {
		platform = "macos"
	}

	release := osRelease()

	return DeviceInfo{
		Platform:  platform,
		Arch:      runtime.GOARCH,
		OSRelease: release,
		Hostname:  hostname,
		OSVersion: strings.TrimSpace(platform + " " + release),
	}
}

// osRelease returns the kernel release string where one is cheaply
// available.
func osRelease() string {
	if runtime.GOOS == "linux" {
		if data, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

// Fingerprint derives the stable, non-reversible device identifier sent to
// the backend: a SHA-256 over hostname, platform, arch and OS release. The
// backend recognizes repeat devices without ever seeing the raw hostname.
func (d DeviceInfo) Fingerprint() string {
	sum := sha256.Sum256([]byte(d.Hostname + ":" + d.Platform + ":" + d.Arch + ":" + d.OSRelease))
	return hex.EncodeToString(sum[:])
}

// Label is the human-readable device name shown in the browser UI when the
// user confirms the pairing.
func (d DeviceInfo) Label() string {
	return d.Hostname + " (" + d.Platform + ")"
}
