package usecase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// ErrNoNewFiles is returned by Submit when every input is already known
// or nothing in it is a font.
var ErrNoNewFiles = errors.New("no new font files")

// Session is the presentation-side font list. Records are only mutated by
// Apply, which the owner calls from the goroutine draining task events.
type Session struct {
	pipeline *Pipeline
	fs       domain.FileSystemManager
	expander domain.ArchiveExpander
	registry domain.FontRegistry
	settings SettingsSource
	logger   *zap.Logger

	mu      sync.Mutex
	records []domain.FontRecord
	index   map[string]int
	pending map[string][]string // analyze task ID -> submitted paths
}

// NewSession creates an empty session.
func NewSession(
	pipeline *Pipeline,
	fs domain.FileSystemManager,
	expander domain.ArchiveExpander,
	registry domain.FontRegistry,
	settings SettingsSource,
	logger *zap.Logger,
) *Session {
	return &Session{
		pipeline: pipeline,
		fs:       fs,
		expander: expander,
		registry: registry,
		settings: settings,
		logger:   logger,
		index:    make(map[string]int),
		pending:  make(map[string][]string),
	}
}

// Submit expands inputs (font files, directories, .zip archives), drops
// paths already in the list or awaiting analysis, and starts an Analyze
// task for the rest.
func (s *Session) Submit(ctx context.Context, inputs []string) (*Task, error) {
	candidates := s.expand(inputs)

	s.mu.Lock()
	seen := make(map[string]bool, len(candidates))
	var fresh []string
	for _, p := range candidates {
		if seen[p] || s.knownLocked(p) {
			continue
		}
		seen[p] = true
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		s.mu.Unlock()
		return nil, ErrNoNewFiles
	}

	task, err := s.pipeline.StartAnalyze(ctx, fresh)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.pending[task.ID()] = fresh
	s.mu.Unlock()

	s.logger.Info("Submitted fonts for analysis", zap.Int("count", len(fresh)), zap.String("task", task.ID()))
	return task, nil
}

// expand turns user inputs into candidate font paths.
func (s *Session) expand(inputs []string) []string {
	var out []string
	for _, in := range inputs {
		switch {
		case domain.IsArchive(in):
			if s.expander == nil {
				continue
			}
			dir, err := s.expander.Expand(in)
			if err != nil {
				s.logger.Warn("Failed to expand archive", zap.String("path", in), zap.Error(err))
				continue
			}
			out = append(out, s.collect(dir)...)
		case s.fs.IsDir(in):
			out = append(out, s.collect(in)...)
		case domain.IsFontFile(in):
			out = append(out, in)
		default:
			s.logger.Debug("Ignoring non-font input", zap.String("path", in))
		}
	}
	return out
}

func (s *Session) collect(dir string) []string {
	found, err := s.fs.CollectFonts(dir)
	if err != nil {
		s.logger.Warn("Failed to scan directory", zap.String("path", dir), zap.Error(err))
	}
	return found
}

func (s *Session) knownLocked(p string) bool {
	if _, ok := s.index[p]; ok {
		return true
	}
	for _, paths := range s.pending {
		for _, q := range paths {
			if q == p {
				return true
			}
		}
	}
	return false
}

// Apply folds one task event into the list. It returns true when the
// event was an install EventFinished that triggered a shell restart.
func (s *Session) Apply(ctx context.Context, ev Event) bool {
	switch ev.Type {
	case EventAnalyzed:
		if ev.Record != nil {
			s.upsert(*ev.Record)
		}
	case EventOutcome:
		if ev.Outcome != nil && ev.Outcome.Succeeded {
			s.markInstalled(ev.Outcome.Path)
		}
	case EventFinished:
		switch ev.Kind {
		case KindAnalyze:
			s.mu.Lock()
			delete(s.pending, ev.TaskID)
			s.mu.Unlock()
		case KindInstall:
			return s.installFinished(ctx, ev.Count)
		}
	}
	return false
}

func (s *Session) upsert(r domain.FontRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[r.Path]; ok {
		s.records[i] = r
		return
	}
	s.index[r.Path] = len(s.records)
	s.records = append(s.records, r)
}

func (s *Session) markInstalled(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[p]; ok {
		s.records[i].Installed = true
	}
}

// installFinished restarts the desktop shell when auto_restart is on and
// at least one font was installed.
func (s *Session) installFinished(ctx context.Context, count int) bool {
	if s.settings == nil || s.registry == nil || count == 0 {
		return false
	}
	if !s.settings.Get().AutoRestart {
		return false
	}
	if err := s.registry.RestartShell(ctx); err != nil {
		s.logger.Warn("Failed to restart desktop shell", zap.Error(err))
		return false
	}
	return true
}

// InstallAll starts an Install task over the current list.
func (s *Session) InstallAll(ctx context.Context) (*Task, error) {
	return s.Install(ctx, s.Records())
}

// Install starts an Install task over records.
func (s *Session) Install(ctx context.Context, records []domain.FontRecord) (*Task, error) {
	return s.pipeline.StartInstall(ctx, records)
}

// Records returns a snapshot of the list in arrival order.
func (s *Session) Records() []domain.FontRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.FontRecord(nil), s.records...)
}

// Len returns the number of records.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Clear drops every record. Pending analyses are forgotten too, so their
// late results are accepted as new entries.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.index = make(map[string]int)
	s.pending = make(map[string][]string)
}

// Drain applies every event of task until it ends, calling observe (if
// non-nil) for each one. It returns the task's final state.
func (s *Session) Drain(ctx context.Context, task *Task, observe func(Event)) TaskState {
	for ev := range task.Events() {
		s.Apply(ctx, ev)
		if observe != nil {
			observe(ev)
		}
	}
	return task.State()
}
