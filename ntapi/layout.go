package ntapi

import "unsafe"

// Layout describes how the kernel lays out the structures unmutex decodes.
// The shapes depend only on the pointer size of the calling process.
type Layout struct {
	PointerSize int
}

// NativeLayout is the layout of the running binary.
func NativeLayout() Layout {
	return Layout{PointerSize: int(unsafe.Sizeof(uintptr(0)))}
}

// Layout32 and Layout64 are the two layouts Windows uses.
var (
	Layout32 = Layout{PointerSize: 4}
	Layout64 = Layout{PointerSize: 8}
)

// ObjectBasicInformationSize is the size of OBJECT_BASIC_INFORMATION, which is
// the same for both pointer sizes.
const ObjectBasicInformationSize = 56

// Offsets inside OBJECT_BASIC_INFORMATION.
const (
	BasicAttributesOffset    = 0
	BasicGrantedAccessOffset = 4
	BasicHandleCountOffset   = 8
	BasicPointerCountOffset  = 12
	BasicNameInfoSizeOffset  = 36
	BasicTypeInfoSizeOffset  = 40
	BasicSecurityDescOffset  = 44
	BasicCreationTimeOffset  = 48
)

// HandleTableHeaderSize is the size of the SYSTEM_HANDLE_INFORMATION_EX header:
// NumberOfHandles and Reserved, both ULONG_PTR.
func (l Layout) HandleTableHeaderSize() int {
	return 2 * l.PointerSize
}

// HandleEntrySize is the size of one SYSTEM_HANDLE_TABLE_ENTRY_INFO_EX.
//
//	PVOID     Object
//	ULONG_PTR UniqueProcessId
//	ULONG_PTR HandleValue
//	ULONG     GrantedAccess
//	USHORT    CreatorBackTraceIndex
//	USHORT    ObjectTypeIndex
//	ULONG     HandleAttributes
//	ULONG     Reserved
func (l Layout) HandleEntrySize() int {
	return 3*l.PointerSize + 16
}

// Offsets inside one handle table entry.
func (l Layout) EntryObjectOffset() int        { return 0 }
func (l Layout) EntryProcessIDOffset() int     { return l.PointerSize }
func (l Layout) EntryHandleValueOffset() int   { return 2 * l.PointerSize }
func (l Layout) EntryGrantedAccessOffset() int { return 3 * l.PointerSize }
func (l Layout) EntryObjectTypeOffset() int    { return 3*l.PointerSize + 6 }
func (l Layout) EntryAttributesOffset() int    { return 3*l.PointerSize + 8 }

// UnicodeStringSize is the size of UNICODE_STRING: two USHORTs padded to
// pointer alignment followed by the Buffer pointer.
func (l Layout) UnicodeStringSize() int {
	return 2 * l.PointerSize
}

// UnicodeBufferOffset is the offset of the Buffer pointer in UNICODE_STRING.
func (l Layout) UnicodeBufferOffset() int {
	return l.PointerSize
}
