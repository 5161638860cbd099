// Package windowstate persists per-window geometry for the desktop wrapper
// so chat windows reopen where the user left them.
package windowstate

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
)

// Config is one window's saved geometry. X/Y are nil when the window manager
// should pick the position.
type Config struct {
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Maximized bool     `json:"maximized"`
	Minimized bool     `json:"minimized"`
}

// NormalizeLabel maps a window label to its storage key. Anything outside
// [A-Za-z0-9_-] becomes '-', matching what the native window manager accepts
// as a label.
func NormalizeLabel(label string) string {
	out := []byte(label)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			out[i] = '-'
		}
	}
	return string(out)
}

// ChatLabel derives the window label for a conversation.
func ChatLabel(chatID string) string {
	return "chat-" + NormalizeLabel(chatID)
}

// Store holds window geometry keyed by normalized label, backed by one JSON
// file. All operations are safe for concurrent use.
type Store struct {
	path string
	log  *logging.Logger

	mu     sync.Mutex
	states map[string]Config
	loaded bool
}

// NewStore creates a store writing to dir/window-state.json.
func NewStore(dir string, log *logging.Logger) *Store {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Store{
		path:   filepath.Join(dir, "window-state.json"),
		log:    log.Component("windowstate"),
		states: make(map[string]Config),
	}
}

// Save records a window's geometry and writes the file through.
func (s *Store) Save(label string, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	s.states[NormalizeLabel(label)] = cfg
	return s.flushLocked()
}

// Load returns the saved geometry for a label, if any.
func (s *Store) Load(label string) (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	cfg, ok := s.states[NormalizeLabel(label)]
	return cfg, ok
}

// Delete forgets a window's geometry.
func (s *Store) Delete(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	delete(s.states, NormalizeLabel(label))
	return s.flushLocked()
}

// Labels lists every stored window key.
func (s *Store) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	labels := make([]string, 0, len(s.states))
	for l := range s.states {
		labels = append(labels, l)
	}
	return labels
}

// loadLocked lazily reads the backing file once. A corrupt file starts the
// store empty rather than failing every window open.
func (s *Store) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("window state unreadable, starting empty", zap.Error(err))
		}
		return
	}
	if err := sonic.Unmarshal(data, &s.states); err != nil {
		s.log.Warn("window state corrupt, starting empty", zap.Error(err))
		s.states = make(map[string]Config)
	}
}

func (s *Store) flushLocked() error {
	data, err := sonic.Marshal(s.states)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
