//go:build windows

package util

import (
	"log/slog"
	"os"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetConsoleWindow = kernel32.NewProc("GetConsoleWindow")
	procShowWindow       = user32.NewProc("ShowWindow")
	procFreeConsole      = kernel32.NewProc("FreeConsole")
)

// shellProcesses are parent process names that indicate a shell launch.
var shellProcesses = map[string]bool{
	"cmd.exe":             true,
	"powershell.exe":      true,
	"pwsh.exe":            true,
	"wt.exe":              true,
	"conhost.exe":         true,
	"windowsterminal.exe": true,
}

// IsRunFromGUI reports whether the process was started by double-clicking
// rather than from a shell, based on the console window and the parent
// process name.
func IsRunFromGUI() bool {
	hwnd, _, _ := procGetConsoleWindow.Call()
	hasConsole := hwnd != 0
	parent := parentProcessName()

	slog.Debug("parent process info", "parent", parent, "hasConsole", hasConsole)

	if !hasConsole {
		return true
	}
	if shellProcesses[strings.ToLower(parent)] {
		return false
	}
	return strings.EqualFold(parent, "explorer.exe")
}

// HideConsoleWindowSoon detaches the console window shortly after startup so
// the first log lines are still visible when launched from Explorer.
func HideConsoleWindowSoon() {
	time.Sleep(250 * time.Millisecond)
	hwnd, _, _ := procGetConsoleWindow.Call()
	if hwnd == 0 {
		slog.Debug("no console window found")
		return
	}
	_, _, _ = procShowWindow.Call(hwnd, windows.SW_HIDE)
	_, _, _ = procFreeConsole.Call()
}

// parentProcessName resolves this process's parent via a toolhelp snapshot.
func parentProcessName() string {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(snapshot)

	ppid := snapshotFind(snapshot, func(pe *windows.ProcessEntry32) (uint32, bool) {
		if pe.ProcessID == uint32(os.Getpid()) {
			return pe.ParentProcessID, true
		}
		return 0, false
	})
	if ppid == 0 {
		return ""
	}

	var name string
	snapshotFind(snapshot, func(pe *windows.ProcessEntry32) (uint32, bool) {
		if pe.ProcessID == ppid {
			name = windows.UTF16ToString(pe.ExeFile[:])
			return 0, true
		}
		return 0, false
	})
	return name
}

// snapshotFind walks the process list from the top and returns the first
// non-zero result of visit, stopping when visit reports done.
func snapshotFind(snapshot windows.Handle, visit func(*windows.ProcessEntry32) (uint32, bool)) uint32 {
	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	if err := windows.Process32First(snapshot, &pe); err != nil {
		return 0
	}
	for {
		if v, done := visit(&pe); done {
			return v
		}
		if err := windows.Process32Next(snapshot, &pe); err != nil {
			return 0
		}
	}
}
