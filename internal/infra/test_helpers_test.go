package infra

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"sync"
	"testing"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// runCall records one command invocation.
type runCall struct {
	name string
	args []string
}

// fakeRunner is a test double for CommandRunner.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []runCall
	started  []runCall
	respond  func(name string, args []string) (CommandResult, error)
	startErr error
}

func newFakeRunner(respond func(name string, args []string) (CommandResult, error)) *fakeRunner {
	return &fakeRunner{respond: respond}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runCall{name: name, args: args})
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return CommandResult{ExitCode: -1}, err
	}
	if f.respond == nil {
		return CommandResult{}, nil
	}
	return f.respond(name, args)
}

func (f *fakeRunner) Start(name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, runCall{name: name, args: args})
	return f.startErr
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRunner) lastCall() runCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return runCall{}
	}
	return f.calls[len(f.calls)-1]
}

// exitError produces a real *exec.ExitError by running a failing shell.
func exitError(t *testing.T) error {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	err := exec.Command("sh", "-c", "exit 3").Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit error, got %v", err)
	}
	return err
}

// mockInspector is a test double for domain.FontInspector.
type mockInspector struct {
	available bool
	valid     bool
	validErr  error
	validated []string
}

func (m *mockInspector) Validate(ctx context.Context, path string) (bool, error) {
	m.validated = append(m.validated, path)
	return m.valid, m.validErr
}

func (m *mockInspector) Analyze(ctx context.Context, path string) (domain.Metadata, error) {
	return domain.Metadata{Name: path}, nil
}

func (m *mockInspector) ToolAvailable() bool {
	return m.available
}

// mockProcessManager is a test double for ProcessManager.
type mockProcessManager struct {
	mu          sync.Mutex
	findCalls   int
	appearAfter int
	pids        []int
	runningPIDs map[int]bool
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{runningPIDs: make(map[int]bool)}
}

func (m *mockProcessManager) FindByName(pattern string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findCalls <= m.appearAfter {
		return nil, nil
	}
	return m.pids, nil
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningPIDs[pid]
}

var (
	_ CommandRunner         = (*fakeRunner)(nil)
	_ domain.FontInspector  = (*mockInspector)(nil)
	_ domain.ProcessManager = (*mockProcessManager)(nil)
)
