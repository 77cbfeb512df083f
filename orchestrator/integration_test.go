package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/safedep/unmutex/handles"
	"github.com/safedep/unmutex/lifecycle"
	"github.com/safedep/unmutex/ntapi"
	"github.com/safedep/unmutex/ntapi/ntapitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaunchAgainstFakeSystem(t *testing.T) {
	sys := ntapitest.New()
	sys.AddNamed(4, 0x10, `\Sessions\1\BaseNamedObjects\Unrelated`)

	fl := &fakeLauncher{nextPID: 2000}
	fl.onLaunch = func(pid uint32) {
		sys.AddThreads(pid, pid+1, pid+2)
		sys.AddNamed(pid, 0x20, `\KnownDlls`)
		sys.AddNamed(pid, 0x1c, testMutexName)
	}

	config := handles.DefaultInterrogatorConfig()
	config.Enumerator.Layout = sys.Layout
	config.Enumerator.InitialBufferSize = 64

	orch, err := New(Config{MutexName: testMutexName}, fl,
		lifecycle.NewController(sys), handles.NewInterrogator(sys, config))
	require.NoError(t, err)

	report, err := orch.LaunchInstances(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Released)
	for _, pid := range []uint32{2004, 2008, 2012} {
		assert.False(t, sys.HasHandle(pid, 0x1c), "mutex of pid %d", pid)
		assert.True(t, sys.HasHandle(pid, 0x20))

		assert.Equal(t, uint32(0), sys.SuspendCounts[pid+1])
		assert.Equal(t, uint32(0), sys.SuspendCounts[pid+2])
	}

	assert.True(t, sys.HasHandle(4, 0x10))
	assert.Len(t, sys.ClosedSources, 3)
	assert.Equal(t, 0, sys.OpenHandleCount())
}

// blindSystem stops answering liveness queries once failAfter mutexes have
// been closed.
type blindSystem struct {
	*ntapitest.Fake

	mu        sync.Mutex
	closes    int
	failAfter int
}

func (s *blindSystem) DuplicateHandle(source ntapi.Handle, handle ntapi.Handle, target ntapi.Handle,
	access uint32, options ntapi.DuplicateOptions) (ntapi.Handle, error) {
	dup, err := s.Fake.DuplicateHandle(source, handle, target, access, options)
	if err == nil && options&ntapi.DuplicateCloseSource != 0 {
		s.mu.Lock()
		s.closes++
		s.mu.Unlock()
	}

	return dup, err
}

func (s *blindSystem) ProcessRunning(pid uint32) (bool, error) {
	s.mu.Lock()
	blind := s.closes >= s.failAfter
	s.mu.Unlock()

	if blind {
		return false, errors.New("NtQueryInformationProcess failed")
	}

	return s.Fake.ProcessRunning(pid)
}

func TestLaunchResumesWhenLivenessIsUnknown(t *testing.T) {
	sys := &blindSystem{Fake: ntapitest.New(), failAfter: 2}

	fl := &fakeLauncher{nextPID: 2000}
	fl.onLaunch = func(pid uint32) {
		sys.AddThreads(pid, pid+1, pid+2)
		sys.AddNamed(pid, 0x1c, testMutexName)
	}

	config := handles.DefaultInterrogatorConfig()
	config.Enumerator.Layout = sys.Layout
	config.Enumerator.InitialBufferSize = 64

	orch, err := New(Config{MutexName: testMutexName}, fl,
		lifecycle.NewController(sys), handles.NewInterrogator(sys, config))
	require.NoError(t, err)

	report, err := orch.LaunchInstances(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Released)

	assert.Len(t, orch.Instances(), 2)
	for _, pid := range []uint32{2004, 2008} {
		assert.Equal(t, uint32(0), sys.SuspendCounts[pid+1], "thread %d", pid+1)
		assert.Equal(t, uint32(0), sys.SuspendCounts[pid+2], "thread %d", pid+2)
	}

	for _, instance := range orch.Instances() {
		assert.False(t, instance.Suspended)
	}
}
