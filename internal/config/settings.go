package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// DefaultSettings returns the settings used on first launch and for any
// key missing from the settings file.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		Theme:        domain.ThemeSystem,
		AutoRestart:  false,
		Language:     domain.LanguageSystem,
		AnimatedBG:   true,
		Transparency: "Mica",
	}
}

// JSONStore persists settings in a single JSON file on disk.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the settings file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load overlays the file's recognized keys onto the defaults, one key at a
// time. Unknown keys are ignored. A key whose value has the wrong type keeps
// its default and is reported in the returned error; the other keys still
// load. A missing file yields defaults; an unreadable or corrupt file yields
// defaults together with the error.
func (s *JSONStore) Load() (domain.Settings, error) {
	cfg := DefaultSettings()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read settings: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse settings: %w", err)
	}

	var errs []error
	for key, dst := range settingFields(&cfg) {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			errs = append(errs, fmt.Errorf("failed to parse setting %q: %w", key, err))
		}
	}
	return cfg, errors.Join(errs...)
}

// settingFields maps each recognized JSON key to its field in cfg.
func settingFields(cfg *domain.Settings) map[string]interface{} {
	return map[string]interface{}{
		"theme":        &cfg.Theme,
		"auto_restart": &cfg.AutoRestart,
		"language":     &cfg.Language,
		"animated_bg":  &cfg.AnimatedBG,
		"transparency": &cfg.Transparency,
	}
}

// Save writes settings as indented JSON atomically (write + rename).
func (s *JSONStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// Unique per process to avoid racing another instance
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

var _ domain.SettingsStore = (*JSONStore)(nil)

// Manager owns the in-memory settings and saves them on every change.
type Manager struct {
	mu      sync.RWMutex
	store   domain.SettingsStore
	current domain.Settings
}

// NewManager loads settings from store. The returned manager is usable
// even when loading failed; it then holds defaults.
func NewManager(store domain.SettingsStore) (*Manager, error) {
	cfg, err := store.Load()
	return &Manager{store: store, current: cfg}, err
}

// Get returns a snapshot of the current settings.
func (m *Manager) Get() domain.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update applies fn to a copy of the settings and persists the result.
// The in-memory value only changes when saving succeeds.
func (m *Manager) Update(fn func(*domain.Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current
	fn(&next)
	if err := m.store.Save(next); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	m.current = next
	return nil
}

// Reload re-reads settings from the store.
func (m *Manager) Reload() error {
	cfg, err := m.store.Load()
	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()
	return err
}
