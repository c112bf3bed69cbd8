package usecase

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// mockInspector implements domain.FontInspector for testing.
type mockInspector struct {
	mu         sync.Mutex
	meta       map[string]domain.Metadata
	analyzeErr map[string]error
	invalid    map[string]bool
	panicOn    map[string]string // path -> stage that panics
	analyzed   []string
}

func newMockInspector() *mockInspector {
	return &mockInspector{
		meta:       make(map[string]domain.Metadata),
		analyzeErr: make(map[string]error),
		invalid:    make(map[string]bool),
		panicOn:    make(map[string]string),
	}
}

func (m *mockInspector) Validate(ctx context.Context, path string) (bool, error) {
	if m.panicOn[path] == "validate" {
		panic("validator crashed")
	}
	if m.invalid[path] {
		return false, domain.NewOpError("validate", path, domain.KindExitStatus, errors.New("exit status 1"))
	}
	return true, nil
}

func (m *mockInspector) Analyze(ctx context.Context, path string) (domain.Metadata, error) {
	m.mu.Lock()
	m.analyzed = append(m.analyzed, path)
	m.mu.Unlock()
	if m.panicOn[path] == "analyze" {
		panic("analyzer crashed")
	}
	if err := m.analyzeErr[path]; err != nil {
		return domain.Metadata{Name: filepath.Base(path), Error: "Analysis Error"}, err
	}
	if meta, ok := m.meta[path]; ok {
		return meta, nil
	}
	return domain.Metadata{Name: filepath.Base(path), Family: filepath.Base(path), Style: "Regular"}, nil
}

func (m *mockInspector) ToolAvailable() bool { return true }

// mockRegistry implements domain.FontRegistry for testing.
type mockRegistry struct {
	mu          sync.Mutex
	installed   map[string]bool // family -> installed
	failInstall map[string]bool
	panicOn     string
	gate        chan struct{} // when set, Install blocks until it receives
	entered     chan string   // when set, Install reports the path on entry
	installs    []string
	listed      []string
	listErr     error
	restarts    int
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		installed:   make(map[string]bool),
		failInstall: make(map[string]bool),
	}
}

func (m *mockRegistry) IsInstalled(family string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installed[family]
}

func (m *mockRegistry) ListInstalled(ctx context.Context) ([]string, error) {
	if m.listErr != nil {
		return []string{}, m.listErr
	}
	return m.listed, nil
}

func (m *mockRegistry) Install(ctx context.Context, path string) (bool, error) {
	if m.entered != nil {
		m.entered <- path
	}
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	m.installs = append(m.installs, path)
	m.mu.Unlock()
	if path == m.panicOn {
		panic("script crashed")
	}
	if m.failInstall[path] {
		return false, domain.NewOpError("register", path, domain.KindMarkerMissing, errors.New("ERROR"))
	}
	return true, nil
}

func (m *mockRegistry) Uninstall(ctx context.Context, fileName string) (bool, error) {
	return true, nil
}

func (m *mockRegistry) RestartShell(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restarts++
	return nil
}

func (m *mockRegistry) Locate(family string) (string, bool) { return "", false }

func (m *mockRegistry) FontsDir() string { return "/fonts" }

func (m *mockRegistry) installCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.installs...)
}

// mockRenderer implements domain.PreviewRenderer for testing.
type mockRenderer struct {
	mu   sync.Mutex
	fail bool
	reqs []domain.PreviewRequest
}

func (m *mockRenderer) Render(req domain.PreviewRequest) (image.Image, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	if m.fail {
		return nil, errors.New("draw failed")
	}
	return image.NewRGBA(image.Rect(0, 0, req.Width, req.Height)), nil
}

// mockDownloader implements domain.Downloader for testing.
type mockDownloader struct {
	mu    sync.Mutex
	err   error
	gate  chan struct{}
	dests []string
}

func (m *mockDownloader) Download(ctx context.Context, url, destPath string) error {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	m.dests = append(m.dests, destPath)
	m.mu.Unlock()
	return m.err
}

// mockFileSystem implements domain.FileSystemManager for testing.
type mockFileSystem struct {
	existing map[string]bool
	dirs     map[string][]string
}

func newMockFileSystem(existing ...string) *mockFileSystem {
	fs := &mockFileSystem{existing: make(map[string]bool), dirs: make(map[string][]string)}
	for _, p := range existing {
		fs.existing[p] = true
	}
	return fs
}

func (m *mockFileSystem) Exists(path string) bool { return m.existing[path] }

func (m *mockFileSystem) IsDir(path string) bool {
	_, ok := m.dirs[path]
	return ok
}

func (m *mockFileSystem) CollectFonts(root string) ([]string, error) {
	files, ok := m.dirs[root]
	if !ok {
		return nil, errors.New("not a directory")
	}
	return files, nil
}

func (m *mockFileSystem) ExpandHome(path string) string { return path }

// addDir registers a directory containing files, all of which exist.
func (m *mockFileSystem) addDir(dir string, files ...string) {
	m.dirs[dir] = files
	for _, f := range files {
		m.existing[f] = true
	}
}

// mockExpander implements domain.ArchiveExpander for testing.
type mockExpander struct {
	dirs map[string]string // archive -> extracted dir
}

func (m *mockExpander) Expand(archivePath string) (string, error) {
	if d, ok := m.dirs[archivePath]; ok {
		return d, nil
	}
	return "", errors.New("corrupt archive")
}

// mockJournal implements domain.InstallJournal for testing.
type mockJournal struct {
	mu      sync.Mutex
	entries []domain.JournalEntry
}

func (m *mockJournal) Record(e domain.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockJournal) Recent(limit int) ([]domain.JournalEntry, error) { return m.entries, nil }

func (m *mockJournal) Close() error { return nil }

// staticSettings implements SettingsSource.
type staticSettings struct {
	s domain.Settings
}

func (f staticSettings) Get() domain.Settings { return f.s }

// drain collects every event of task, failing the test on timeout.
func drain(t *testing.T, task *Task) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-task.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("task %s did not finish", task.Kind())
			return nil
		}
	}
}

// ofType filters events by type.
func ofType(events []Event, typ EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

var (
	_ domain.FontInspector     = (*mockInspector)(nil)
	_ domain.FontRegistry      = (*mockRegistry)(nil)
	_ domain.PreviewRenderer   = (*mockRenderer)(nil)
	_ domain.Downloader        = (*mockDownloader)(nil)
	_ domain.FileSystemManager = (*mockFileSystem)(nil)
	_ domain.ArchiveExpander   = (*mockExpander)(nil)
	_ domain.InstallJournal    = (*mockJournal)(nil)
)
