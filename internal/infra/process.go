// Package infra implements the adapters behind the domain interfaces:
// font tool, system-ops script, preview rendering, downloads, journal.
package infra

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// FindByName returns PIDs of processes matching the pattern (case-insensitive).
func (pm *ProcessManagerImpl) FindByName(pattern string) ([]int, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var found []int
	patternLower := strings.ToLower(pattern)

	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // Process may have exited
		}

		if strings.EqualFold(name, pattern) || strings.Contains(strings.ToLower(name), patternLower) {
			found = append(found, int(p.Pid))
		}
	}

	return found, nil
}

// IsRunning checks if a PID exists and is running.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	exists, err := process.PidExists(int32(pid))
	return err == nil && exists
}

// WaitForProcess polls until a process matching name appears, the timeout
// elapses, or ctx is done. It returns the first matching PIDs.
func WaitForProcess(ctx context.Context, pm domain.ProcessManager, name string, interval, timeout time.Duration) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pids, err := pm.FindByName(name)
		if err == nil && len(pids) > 0 {
			return pids, nil
		}
		select {
		case <-ctx.Done():
			return nil, domain.NewOpError("wait", name, domain.KindTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
