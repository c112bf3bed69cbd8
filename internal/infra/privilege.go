package infra

import (
	"context"
	"os"
	"runtime"
)

// Privilege describes whether the process can write the OS font store.
type Privilege string

const (
	// PrivilegeUser is a regular, non-elevated process.
	PrivilegeUser Privilege = "user"
	// PrivilegeAdmin is an elevated process (Administrator or root).
	PrivilegeAdmin Privilege = "admin"
)

// String returns a human-readable description of the privilege level.
func (p Privilege) String() string {
	switch p {
	case PrivilegeAdmin:
		return "admin (elevated)"
	case PrivilegeUser:
		return "user (not elevated)"
	default:
		return "unknown"
	}
}

// PrivilegeDetector determines the current privilege level.
type PrivilegeDetector struct {
	runner CommandRunner
	goos   string
	euid   func() int
}

// NewPrivilegeDetector creates a detector for the running platform.
func NewPrivilegeDetector(runner CommandRunner) *PrivilegeDetector {
	return &PrivilegeDetector{runner: runner, goos: runtime.GOOS, euid: os.Geteuid}
}

// Detect returns PrivilegeAdmin when elevated. On Windows `net session`
// only succeeds for administrators; elsewhere the effective UID decides.
func (d *PrivilegeDetector) Detect(ctx context.Context) Privilege {
	if d.goos == "windows" {
		if _, err := d.runner.Run(ctx, "net", "session"); err == nil {
			return PrivilegeAdmin
		}
		return PrivilegeUser
	}
	if d.euid() == 0 {
		return PrivilegeAdmin
	}
	return PrivilegeUser
}
