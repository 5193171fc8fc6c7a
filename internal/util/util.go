//go:build !windows

package util

// IsRunFromGUI reports whether the process was started by double-clicking
// rather than from a shell. Only meaningful on Windows; on other platforms a
// terminal (or a service manager) is assumed.
func IsRunFromGUI() bool {
	return false
}

// HideConsoleWindowSoon is a no-op outside Windows.
func HideConsoleWindowSoon() {}
