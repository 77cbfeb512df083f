// Package ntapitest provides a scripted ntapi.System for tests. It keeps a
// handle table, named objects and threads in memory and lets a test inject the
// size negotiation and refusal responses the real kernel produces.
package ntapitest

import (
	"sync"
	"time"

	"github.com/safedep/unmutex/ntapi"
)

// Object is a kernel object referenced by one or more handle table entries.
type Object struct {
	Name          *string
	GrantedAccess uint32
	HandleCount   uint32
	PointerCount  uint32
	CreationTime  time.Time

	// QueryErr, when set, is returned by every QueryObject on this object.
	QueryErr error
}

type objectKey struct {
	pid   uint32
	value uint64
}

type handleKind int

const (
	kindProcess handleKind = iota
	kindThread
	kindObject
)

type openHandle struct {
	kind handleKind
	id   uint32
	obj  *Object
}

// Fake implements ntapi.System. The zero value is not usable, use New.
type Fake struct {
	mu sync.Mutex

	Layout  ntapi.Layout
	Session uint32

	// Handles is the system wide handle table.
	Handles []HandleEntry

	// SystemTooSmall scripts the Required sizes reported by the first
	// len(SystemTooSmall) QuerySystemHandles calls, regardless of the buffer.
	SystemTooSmall []int

	// NameTooSmall is the number of name queries that report a length
	// mismatch before the fake starts honoring the buffer size.
	NameTooSmall int

	// UnderreportNameSize makes the basic query report a name size that is
	// too small, forcing the name query to negotiate.
	UnderreportNameSize bool

	DeniedProcesses map[uint32]bool
	DeniedDuplicate map[uint32]bool
	Exited          map[uint32]bool

	Threads       map[uint32][]uint32
	SuspendCounts map[uint32]uint32
	GoneThreads   map[uint32]bool

	SystemQueryBufferSizes []int
	NameQueryBufferSizes   []int
	ClosedSources          []HandleEntry

	OpenProcessCalls int
	DuplicateCalls   int
	QueryObjectCalls int
	SuspendCalls     int
	ResumeCalls      int

	objects    map[objectKey]*Object
	open       map[ntapi.Handle]openHandle
	nextHandle ntapi.Handle
}

var _ ntapi.System = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Layout:          ntapi.NativeLayout(),
		Session:         1,
		DeniedProcesses: map[uint32]bool{},
		DeniedDuplicate: map[uint32]bool{},
		Exited:          map[uint32]bool{},
		Threads:         map[uint32][]uint32{},
		SuspendCounts:   map[uint32]uint32{},
		GoneThreads:     map[uint32]bool{},
		objects:         map[objectKey]*Object{},
		open:            map[ntapi.Handle]openHandle{},
		nextHandle:      0x1000,
	}
}

// AddHandle appends an entry to the handle table and binds it to obj.
func (f *Fake) AddHandle(entry HandleEntry, obj *Object) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Handles = append(f.Handles, entry)
	f.objects[objectKey{entry.PID, entry.Value}] = obj
}

// AddNamed adds a named object handle owned by pid.
func (f *Fake) AddNamed(pid uint32, value uint64, name string) *Object {
	obj := &Object{Name: &name, HandleCount: 1, PointerCount: 1}
	f.AddHandle(HandleEntry{PID: pid, Value: value, GrantedAccess: 0x1f0001, TypeIndex: 17}, obj)

	return obj
}

// AddThreads registers the threads owned by pid.
func (f *Fake) AddThreads(pid uint32, tids ...uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Threads[pid] = append(f.Threads[pid], tids...)
}

// OpenHandleCount is the number of handles handed out and not yet closed.
func (f *Fake) OpenHandleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.open)
}

// HasHandle reports whether pid still holds value.
func (f *Fake) HasHandle(pid uint32, value uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.objects[objectKey{pid, value}]
	return ok
}

func (f *Fake) QuerySystemHandles(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SystemQueryBufferSizes = append(f.SystemQueryBufferSizes, len(buf))

	if len(f.SystemTooSmall) > 0 {
		required := f.SystemTooSmall[0]
		f.SystemTooSmall = f.SystemTooSmall[1:]

		return 0, &ntapi.LengthMismatchError{
			Op:       "NtQuerySystemInformation",
			Required: required,
			Status:   ntapi.StatusInfoLengthMismatch,
		}
	}

	data := EncodeHandleTable(f.Layout, f.Handles)
	if len(buf) < len(data) {
		return 0, &ntapi.LengthMismatchError{
			Op:       "NtQuerySystemInformation",
			Required: len(data),
			Status:   ntapi.StatusInfoLengthMismatch,
		}
	}

	return copy(buf, data), nil
}

func (f *Fake) QueryObject(h ntapi.Handle, class ntapi.ObjectInfoClass, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.QueryObjectCalls++

	oh, ok := f.open[h]
	if !ok || oh.kind != kindObject {
		return 0, &ntapi.Error{Op: "NtQueryObject", Code: ntapi.StatusInvalidHandle}
	}

	if oh.obj.QueryErr != nil {
		return 0, oh.obj.QueryErr
	}

	nameSize := NameInfoSize(f.Layout, oh.obj.Name)

	switch class {
	case ntapi.ObjectBasicInformation:
		if len(buf) < ntapi.ObjectBasicInformationSize {
			return 0, f.mismatch(ntapi.ObjectBasicInformationSize)
		}

		reported := nameSize
		if f.UnderreportNameSize {
			reported = 0
		}

		return copy(buf, EncodeObjectBasic(oh.obj, uint32(reported))), nil

	case ntapi.ObjectNameInformation:
		f.NameQueryBufferSizes = append(f.NameQueryBufferSizes, len(buf))

		if f.NameTooSmall > 0 {
			f.NameTooSmall--
			return 0, f.mismatch(nameSize)
		}

		if len(buf) < nameSize {
			return 0, f.mismatch(nameSize)
		}

		return EncodeObjectName(f.Layout, buf, oh.obj.Name), nil
	}

	return 0, &ntapi.Error{Op: "NtQueryObject", Code: 0xC0000003}
}

func (f *Fake) mismatch(required int) error {
	return &ntapi.LengthMismatchError{Op: "NtQueryObject", Required: required, Status: ntapi.StatusInfoLengthMismatch}
}

func (f *Fake) DuplicateHandle(sourceProcess ntapi.Handle, sourceHandle ntapi.Handle, targetProcess ntapi.Handle,
	_ uint32, options ntapi.DuplicateOptions) (ntapi.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.DuplicateCalls++

	src, ok := f.open[sourceProcess]
	if !ok || src.kind != kindProcess {
		return 0, &ntapi.Error{Op: "DuplicateHandle", Code: ntapi.CodeInvalidHandle}
	}

	if f.DeniedDuplicate[src.id] {
		return 0, &ntapi.Error{Op: "DuplicateHandle", Code: ntapi.CodeAccessDenied}
	}

	key := objectKey{src.id, uint64(sourceHandle)}
	obj, ok := f.objects[key]
	if !ok {
		return 0, &ntapi.Error{Op: "DuplicateHandle", Code: ntapi.CodeInvalidHandle}
	}

	if options&ntapi.DuplicateCloseSource != 0 {
		delete(f.objects, key)

		for i, e := range f.Handles {
			if e.PID == key.pid && e.Value == key.value {
				f.ClosedSources = append(f.ClosedSources, e)
				f.Handles = append(f.Handles[:i], f.Handles[i+1:]...)
				break
			}
		}
	}

	if targetProcess == 0 {
		return 0, nil
	}

	if targetProcess != ntapi.CurrentProcessHandle {
		return 0, &ntapi.Error{Op: "DuplicateHandle", Code: ntapi.CodeInvalidParameter}
	}

	return f.allocate(openHandle{kind: kindObject, obj: obj}), nil
}

func (f *Fake) OpenProcess(pid uint32, _ uint32) (ntapi.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenProcessCalls++

	if f.DeniedProcesses[pid] {
		return 0, &ntapi.Error{Op: "OpenProcess", Code: ntapi.CodeAccessDenied}
	}

	if f.Exited[pid] {
		return 0, &ntapi.Error{Op: "OpenProcess", Code: ntapi.CodeInvalidParameter}
	}

	return f.allocate(openHandle{kind: kindProcess, id: pid}), nil
}

func (f *Fake) OpenThread(tid uint32, _ uint32) (ntapi.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.GoneThreads[tid] {
		return 0, &ntapi.Error{Op: "OpenThread", Code: ntapi.CodeInvalidParameter}
	}

	return f.allocate(openHandle{kind: kindThread, id: tid}), nil
}

func (f *Fake) CloseHandle(h ntapi.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.open[h]; !ok {
		return &ntapi.Error{Op: "CloseHandle", Code: ntapi.CodeInvalidHandle}
	}

	delete(f.open, h)
	return nil
}

func (f *Fake) CurrentProcess() ntapi.Handle {
	return ntapi.CurrentProcessHandle
}

func (f *Fake) SuspendThread(h ntapi.Handle) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SuspendCalls++

	oh, ok := f.open[h]
	if !ok || oh.kind != kindThread {
		return 0, &ntapi.Error{Op: "SuspendThread", Code: ntapi.CodeInvalidHandle}
	}

	prior := f.SuspendCounts[oh.id]
	if prior >= ntapi.MaximumSuspendCount {
		return 0, &ntapi.Error{Op: "SuspendThread", Code: 156}
	}

	f.SuspendCounts[oh.id] = prior + 1
	return prior, nil
}

func (f *Fake) ResumeThread(h ntapi.Handle) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ResumeCalls++

	oh, ok := f.open[h]
	if !ok || oh.kind != kindThread {
		return 0, &ntapi.Error{Op: "ResumeThread", Code: ntapi.CodeInvalidHandle}
	}

	prior := f.SuspendCounts[oh.id]
	if prior > 0 {
		f.SuspendCounts[oh.id] = prior - 1
	}

	return prior, nil
}

func (f *Fake) ProcessThreads(pid uint32) ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Exited[pid] {
		return nil, nil
	}

	return append([]uint32(nil), f.Threads[pid]...), nil
}

func (f *Fake) ProcessRunning(pid uint32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return !f.Exited[pid], nil
}

func (f *Fake) SessionID() (uint32, error) {
	return f.Session, nil
}

func (f *Fake) allocate(oh openHandle) ntapi.Handle {
	h := f.nextHandle
	f.nextHandle += 4
	f.open[h] = oh

	return h
}
