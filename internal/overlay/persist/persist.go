// Package persist snapshots the overlay stack to disk so a restarted window
// can restore its open dialogs. Only entries marked persist-in-URL are
// written; ephemeral overlays (pickers, confirms in flight) never survive a
// restart.
package persist

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/overlay"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

const snapshotVersion = 1

type snapshot struct {
	Version  int                  `json:"version"`
	SavedAt  time.Time            `json:"saved_at"`
	Overlays []types.OverlayEntry `json:"overlays"`
}

// Store reads and writes gzip-compressed overlay snapshots under a base
// directory.
type Store struct {
	path string
	log  *logging.Logger
}

// NewStore creates a store writing to dir/overlays.json.gz.
func NewStore(dir string, log *logging.Logger) *Store {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Store{
		path: filepath.Join(dir, "overlays.json.gz"),
		log:  log.Component("overlay.persist"),
	}
}

// Save writes the stack's persistent entries. An empty persistent set removes
// the snapshot file instead of writing an empty one.
func (s *Store) Save(stack *overlay.Stack) error {
	var persistent []types.OverlayEntry
	for _, e := range stack.Entries() {
		if e.PersistInURL {
			persistent = append(persistent, e)
		}
	}
	if len(persistent) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	data, err := sonic.Marshal(snapshot{
		Version:  snapshotVersion,
		SavedAt:  time.Now(),
		Overlays: persistent,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the snapshot's entries. A missing, corrupt, or version-skewed
// snapshot loads as empty: restoring stale dialogs is never worth a crash.
func (s *Store) Load() []types.OverlayEntry {
	f, err := os.Open(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("overlay snapshot unreadable", zap.Error(err))
		}
		return nil
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		s.log.Warn("overlay snapshot corrupt, ignoring", zap.Error(err))
		return nil
	}
	defer zr.Close()

	var snap snapshot
	dec := sonic.ConfigDefault.NewDecoder(zr)
	if err := dec.Decode(&snap); err != nil {
		s.log.Warn("overlay snapshot corrupt, ignoring", zap.Error(err))
		return nil
	}
	if snap.Version != snapshotVersion {
		s.log.Warn("overlay snapshot version mismatch, ignoring",
			zap.Int("found", snap.Version), zap.Int("want", snapshotVersion))
		return nil
	}
	return snap.Overlays
}

// Restore loads the snapshot and reopens its entries onto the stack, bottom
// to top. Entries whose type is no longer known are skipped.
func (s *Store) Restore(stack *overlay.Stack) int {
	restored := 0
	for _, e := range s.Load() {
		if !e.Type.Valid() {
			s.log.Warn("skipping overlay with unknown type", zap.String("type", string(e.Type)))
			continue
		}
		stack.Open(overlay.OpenRequest{
			Type:         e.Type,
			Props:        e.Props,
			PersistInURL: true,
		})
		restored++
	}
	return restored
}
