// Package handles walks the system handle table, resolves handles of a target
// process to their object names and closes a named object from outside the
// process that owns it.
package handles

import "time"

// SystemHandleRecord is one entry of the system wide handle table. ObjectPointer
// is the kernel address of the object; it is advisory and never dereferenced.
type SystemHandleRecord struct {
	OwnerPID      uint32
	ObjectType    uint16
	Flags         uint32
	HandleValue   uint64
	ObjectPointer uint64
	GrantedAccess uint32
}

// ResolvedHandleInfo is a record together with what the object manager told us
// about it. Name is nil when the object is unnamed or the name is unknown.
type ResolvedHandleInfo struct {
	Record       SystemHandleRecord
	Name         *string
	HandleCount  uint32
	PointerCount uint32
	CreateTime   time.Time
}

// NameOrEmpty returns the resolved name, or "" when there is none.
func (r ResolvedHandleInfo) NameOrEmpty() string {
	if r.Name == nil {
		return ""
	}

	return *r.Name
}

// MutexTarget selects the named object to release in one process.
type MutexTarget struct {
	Name     string
	OwnerPID uint32
}

// Matches reports whether info is owned by the target process and carries
// exactly the target name.
func (t MutexTarget) Matches(info ResolvedHandleInfo) bool {
	return info.Record.OwnerPID == t.OwnerPID &&
		info.Name != nil &&
		*info.Name == t.Name
}
