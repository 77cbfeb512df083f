package handles

import (
	"unsafe"

	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/ntapi"
)

const (
	DefaultMinNameBuffer   = 0x200
	DefaultNameMaxAttempts = 4
)

// Granted access masks of synchronous pipe handles. NtQueryObject blocks
// forever asking these for their name.
var defaultHangingAccess = []uint32{
	0x0012019f,
	0x001a019f,
	0x00120189,
}

type ResolverConfig struct {
	// MinNameBuffer is the smallest buffer used for the name query.
	MinNameBuffer int

	// MaxAttempts bounds the name query size negotiation.
	MaxAttempts int

	// SkipAccess lists granted access masks that are never queried.
	SkipAccess []uint32
}

func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MinNameBuffer: DefaultMinNameBuffer,
		MaxAttempts:   DefaultNameMaxAttempts,
		SkipAccess:    append([]uint32(nil), defaultHangingAccess...),
	}
}

// Resolver looks up what a single handle of another process refers to.
type Resolver struct {
	sys    ntapi.System
	config ResolverConfig
	layout ntapi.Layout
	skip   map[uint32]bool
}

func NewResolver(sys ntapi.System, config ResolverConfig, layout ntapi.Layout) *Resolver {
	if config.MinNameBuffer <= 0 {
		config.MinNameBuffer = DefaultMinNameBuffer
	}

	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultNameMaxAttempts
	}

	if layout.PointerSize == 0 {
		layout = ntapi.NativeLayout()
	}

	skip := make(map[uint32]bool, len(config.SkipAccess))
	for _, access := range config.SkipAccess {
		skip[access] = true
	}

	return &Resolver{sys: sys, config: config, layout: layout, skip: skip}
}

// Resolve duplicates record's handle out of ownerPID and queries it. It returns
// nil when any step fails; failures are expected (protected processes, exited
// processes, handles closed in the meantime) and only logged at debug level.
func (r *Resolver) Resolve(record SystemHandleRecord, ownerPID uint32) *ResolvedHandleInfo {
	if r.skip[record.GrantedAccess] {
		return nil
	}

	owner, err := r.sys.OpenProcess(ownerPID, ntapi.ProcessDupHandle)
	if err != nil {
		log.Debugf("Unable to open pid %d: %v", ownerPID, err)
		return nil
	}

	defer r.closeHandle(owner)

	dup, err := r.sys.DuplicateHandle(owner, ntapi.Handle(record.HandleValue),
		r.sys.CurrentProcess(), 0, ntapi.DuplicateSameAccess)
	if err != nil {
		log.Debugf("Unable to duplicate handle 0x%x of pid %d: %v", record.HandleValue, ownerPID, err)
		return nil
	}

	defer r.closeHandle(dup)

	basicBuf := make([]byte, ntapi.ObjectBasicInformationSize)
	if _, err := r.sys.QueryObject(dup, ntapi.ObjectBasicInformation, basicBuf); err != nil {
		log.Debugf("Basic query of handle 0x%x failed: %v", record.HandleValue, err)
		return nil
	}

	basic, err := DecodeObjectBasicInformation(basicBuf)
	if err != nil {
		log.Debugf("Basic information of handle 0x%x is malformed: %v", record.HandleValue, err)
		return nil
	}

	nameBuf, err := negotiate("object name", max(int(basic.NameInfoSize), r.config.MinNameBuffer),
		r.config.MaxAttempts, func(buf []byte) (int, error) {
			return r.sys.QueryObject(dup, ntapi.ObjectNameInformation, buf)
		})
	if err != nil {
		log.Debugf("Name query of handle 0x%x failed: %v", record.HandleValue, err)
		return nil
	}

	base := uintptr(unsafe.Pointer(unsafe.SliceData(nameBuf)))
	name, err := DecodeObjectName(nameBuf, base, r.layout)
	if err != nil {
		log.Debugf("Name of handle 0x%x is malformed: %v", record.HandleValue, err)
		return nil
	}

	return &ResolvedHandleInfo{
		Record:       record,
		Name:         name,
		HandleCount:  basic.HandleCount,
		PointerCount: basic.PointerCount,
		CreateTime:   basic.CreationTime,
	}
}

func (r *Resolver) closeHandle(h ntapi.Handle) {
	if err := r.sys.CloseHandle(h); err != nil {
		log.Warnf("Failed to close handle 0x%x: %v", h, err)
	}
}
