// Package settings is the persisted state bag shared by the format engines
// and the bar blocks. State is keyed by axis; every Set notifies subscribers.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tokenclock/format"
)

const fileVersion = 1

// AxisState is what the store keeps for one axis.
type AxisState struct {
	Active     []format.FormatToken  `yaml:"active"`
	Inactive   []format.FormatToken  `yaml:"inactive"`
	Convention format.Convention     `yaml:"convention"`
	Delimiter  format.DelimiterStyle `yaml:"delimiter"`
	Format     string                `yaml:"format"`
}

// FromSnapshot copies the persisted part of an engine snapshot.
func FromSnapshot(s format.Snapshot) AxisState {
	return AxisState{
		Active:     slices.Clone(s.Active),
		Inactive:   slices.Clone(s.Inactive),
		Convention: s.Convention,
		Delimiter:  s.Delimiter,
		Format:     s.Format,
	}
}

// Snapshot converts the state back for format.Engine.Restore.
func (a AxisState) Snapshot(axis format.Axis) format.Snapshot {
	return format.Snapshot{
		Axis:       axis,
		Active:     slices.Clone(a.Active),
		Inactive:   slices.Clone(a.Inactive),
		Convention: a.Convention,
		Delimiter:  a.Delimiter,
		Format:     a.Format,
	}
}

func (a AxisState) Equal(b AxisState) bool {
	return a.Convention == b.Convention &&
		a.Delimiter == b.Delimiter &&
		a.Format == b.Format &&
		slices.Equal(a.Active, b.Active) &&
		slices.Equal(a.Inactive, b.Inactive)
}

func (a AxisState) clone() AxisState {
	a.Active = slices.Clone(a.Active)
	a.Inactive = slices.Clone(a.Inactive)
	return a
}

type stateFile struct {
	Version int                       `yaml:"version"`
	Axes    map[format.Axis]AxisState `yaml:"axes"`
}

// Subscriber is told about every accepted Set.
type Subscriber func(axis format.Axis, state AxisState)

type Store struct {
	path string
	log  *zap.Logger

	mu      sync.Mutex
	axes    map[format.Axis]AxisState
	subs    map[int]Subscriber
	nextSub int
}

// New returns an in-memory store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		log:  logger.Named("settings"),
		axes: make(map[format.Axis]AxisState),
		subs: make(map[int]Subscriber),
	}
}

// Open returns a store persisted at path. A missing file is an empty store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	s := New(logger)
	s.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("no state file yet", zap.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var f stateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	if f.Version != fileVersion {
		return nil, fmt.Errorf("state %s: unsupported version %d", path, f.Version)
	}
	for axis, st := range f.Axes {
		if !axis.Valid() {
			s.log.Warn("dropping state of unknown axis", zap.String("axis", string(axis)))
			continue
		}
		s.axes[axis] = st
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get(axis format.Axis) (AxisState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.axes[axis]
	return st.clone(), ok
}

// Axes lists the axes holding state.
func (s *Store) Axes() []format.Axis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.axes))
}

// Set stores st for axis, persists the store when it has a path and then
// notifies subscribers. Setting an equal state is a no-op. A persistence
// failure is returned but the in-memory state and notifications still apply.
func (s *Store) Set(axis format.Axis, st AxisState) error {
	s.mu.Lock()
	if prev, ok := s.axes[axis]; ok && prev.Equal(st) {
		s.mu.Unlock()
		return nil
	}
	s.axes[axis] = st.clone()
	var err error
	if s.path != "" {
		err = s.saveLocked()
	}
	subs := slices.Collect(maps.Values(s.subs))
	s.mu.Unlock()

	if err != nil {
		s.log.Error("persist state", zap.String("path", s.path), zap.Error(err))
	}
	for _, fn := range subs {
		fn(axis, st.clone())
	}
	return err
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Subscriber) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// saveLocked writes the whole store next to path and renames it into place.
func (s *Store) saveLocked() error {
	data, err := yaml.Marshal(stateFile{Version: fileVersion, Axes: s.axes})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp := s.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temporary state file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temporary state file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temporary state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temporary state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename state file into place: %w", err)
	}
	return nil
}
