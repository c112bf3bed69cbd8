// Package daemon implements the drop-folder watcher loop.
package daemon

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/ultrafont/internal/domain"
	"github.com/eliteGoblin/ultrafont/internal/usecase"
)

// WatcherConfig holds drop-folder watcher configuration.
type WatcherConfig struct {
	Dir          string        // Folder to watch
	ScanInterval time.Duration // How often to rescan (default 5s)
	AutoInstall  bool          // Install newly analyzed fonts right away
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig(dir string) WatcherConfig {
	return WatcherConfig{
		Dir:          dir,
		ScanInterval: 5 * time.Second,
	}
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Analyzed  int
	Installed int
}

// Watcher rescans a folder on a schedule and feeds new font files to a
// session. Paths already in the session are never analyzed twice.
type Watcher struct {
	config  WatcherConfig
	session *usecase.Session
	observe func(usecase.Event)
	logger  *zap.Logger

	// analyzed paths awaiting auto-install; only touched by Scan
	pending map[string]bool
}

// NewWatcher creates a watcher. observe may be nil.
func NewWatcher(config WatcherConfig, session *usecase.Session, observe func(usecase.Event), logger *zap.Logger) *Watcher {
	if config.ScanInterval <= 0 {
		config.ScanInterval = DefaultWatcherConfig(config.Dir).ScanInterval
	}
	return &Watcher{
		config:  config,
		session: session,
		observe: observe,
		logger:  logger,
		pending: make(map[string]bool),
	}
}

// Run scans immediately and then on every tick.
// This blocks until context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher started",
		zap.String("dir", w.config.Dir),
		zap.Duration("interval", w.config.ScanInterval),
		zap.Bool("auto_install", w.config.AutoInstall))

	w.Scan(ctx)

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping")
			return ctx.Err()
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan submits the folder once, waits for the analysis and, with
// AutoInstall, installs what it found. Fonts whose install could not be
// started (another install running) are retried on the next scan.
func (w *Watcher) Scan(ctx context.Context) ScanResult {
	var result ScanResult

	task, err := w.session.Submit(ctx, []string{w.config.Dir})
	switch {
	case errors.Is(err, usecase.ErrNoNewFiles):
		w.logger.Debug("no new fonts", zap.String("dir", w.config.Dir))
	case errors.Is(err, usecase.ErrTaskAlreadyRunning):
		w.logger.Debug("analysis busy, retrying next tick")
	case err != nil:
		w.logger.Warn("failed to submit drop folder", zap.String("dir", w.config.Dir), zap.Error(err))
	default:
		w.session.Drain(ctx, task, func(ev usecase.Event) {
			if ev.Type == usecase.EventAnalyzed && ev.Record != nil {
				result.Analyzed++
				if w.config.AutoInstall {
					w.pending[ev.Record.Path] = true
				}
			}
			w.notify(ev)
		})
	}

	if w.config.AutoInstall && ctx.Err() == nil {
		result.Installed = w.installPending(ctx)
	}

	if result.Analyzed > 0 || result.Installed > 0 {
		w.logger.Info("scan completed",
			zap.Int("analyzed", result.Analyzed),
			zap.Int("installed", result.Installed))
	}
	return result
}

// installPending installs the analyzed fonts still waiting for an install
// task. The session's current records are used so the installed flags are
// up to date.
func (w *Watcher) installPending(ctx context.Context) int {
	if len(w.pending) == 0 {
		return 0
	}
	var records []domain.FontRecord
	for _, r := range w.session.Records() {
		if w.pending[r.Path] {
			records = append(records, r)
		}
	}
	if len(records) == 0 {
		// session was cleared
		w.pending = make(map[string]bool)
		return 0
	}

	install, err := w.session.Install(ctx, records)
	if err != nil {
		w.logger.Warn("failed to start install, retrying next scan",
			zap.Int("pending", len(records)), zap.Error(err))
		return 0
	}
	w.pending = make(map[string]bool)
	w.session.Drain(ctx, install, w.notify)
	return install.Count()
}

func (w *Watcher) notify(ev usecase.Event) {
	if w.observe != nil {
		w.observe(ev)
	}
}
