// Package platform names the operating systems obsplug distinguishes when
// resolving user directories.
package platform

import "runtime"

const (
	// OSWindows represents the Windows operating system.
	OSWindows = "windows"
	// OSLinux represents the Linux operating system.
	OSLinux = "linux"
	// OSDarwin represents the macOS operating system.
	OSDarwin = "darwin"
)

// Current returns the running operating system.
func Current() string {
	return runtime.GOOS
}

// IsWindows reports whether goos is Windows.
func IsWindows(goos string) bool {
	return goos == OSWindows
}
