// Package session persists the instances launched by earlier unmutex runs so
// later commands can pause, resume or release them.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/orchestrator"
)

const (
	fileVersion = 1

	lockRetryDelay     = 100 * time.Millisecond
	defaultLockTimeout = 5 * time.Second
)

var ErrLockTimeout = errors.New("timeout waiting for the instances lock")

type file struct {
	Version   int                     `json:"version"`
	UpdatedAt time.Time               `json:"updated_at"`
	Instances []orchestrator.Instance `json:"instances"`
}

// Store is the instances file plus a sibling lock file. The lock is held for a
// whole command so two unmutex processes never run batches at the same time.
type Store struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
}

func NewStore(path string) *Store {
	return &Store{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: defaultLockTimeout,
	}
}

// WithLockTimeout changes how long Lock waits for another process.
func (s *Store) WithLockTimeout(d time.Duration) *Store {
	s.lockTimeout = d
	return s
}

func (s *Store) Path() string {
	return s.path
}

// Lock takes the cross process lock. The returned function releases it.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}

		return nil, fmt.Errorf("acquiring lock: %w", err)
	}

	if !locked {
		return nil, ErrLockTimeout
	}

	return func() {
		if err := s.lock.Unlock(); err != nil {
			log.Warnf("failed to release instances lock: %v", err)
		}
	}, nil
}

// Load returns the stored instances ordered by index. A missing file is an
// empty list.
func (s *Store) Load() ([]orchestrator.Instance, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []orchestrator.Instance{}, nil
		}

		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	if f.Version > fileVersion {
		return nil, fmt.Errorf("%s was written by a newer unmutex (version %d)", s.path, f.Version)
	}

	instances := f.Instances
	if instances == nil {
		instances = []orchestrator.Instance{}
	}

	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].Index < instances[j].Index
	})

	return instances, nil
}

// Save replaces the stored list. The file is written next to the target and
// renamed over it.
func (s *Store) Save(instances []orchestrator.Instance) error {
	if instances == nil {
		instances = []orchestrator.Instance{}
	}

	data, err := json.MarshalIndent(file{
		Version:   fileVersion,
		UpdatedAt: time.Now().UTC(),
		Instances: instances,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode instances: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	return nil
}

// Update runs fn on the stored list under the lock and saves what it returns.
func (s *Store) Update(ctx context.Context, fn func([]orchestrator.Instance) ([]orchestrator.Instance, error)) error {
	unlock, err := s.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	instances, err := s.Load()
	if err != nil {
		return err
	}

	updated, err := fn(instances)
	if err != nil {
		return err
	}

	return s.Save(updated)
}

// Prune drops the instances for which exited returns true and returns them.
func Prune(instances []orchestrator.Instance, exited func(pid uint32) bool) (kept, dropped []orchestrator.Instance) {
	kept = make([]orchestrator.Instance, 0, len(instances))

	for _, instance := range instances {
		if exited(instance.PID) {
			dropped = append(dropped, instance)
		} else {
			kept = append(kept, instance)
		}
	}

	return kept, dropped
}

// Remove drops the instance with the given pid.
func Remove(instances []orchestrator.Instance, pid uint32) ([]orchestrator.Instance, bool) {
	out := make([]orchestrator.Instance, 0, len(instances))
	found := false

	for _, instance := range instances {
		if instance.PID == pid {
			found = true
			continue
		}

		out = append(out, instance)
	}

	return out, found
}
