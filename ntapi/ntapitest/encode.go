package ntapitest

import (
	"encoding/binary"
	"time"
	"unicode/utf16"
	"unsafe"

	"github.com/safedep/unmutex/ntapi"
)

// HandleEntry is one row of the scripted system handle table.
type HandleEntry struct {
	PID           uint32
	Value         uint64
	GrantedAccess uint32
	TypeIndex     uint16
	Attributes    uint32
	ObjectPointer uint64
}

const filetimeEpochDelta = 116444736000000000

// EncodeHandleTable renders entries the way SystemExtendedHandleInformation
// does for the given layout.
func EncodeHandleTable(layout ntapi.Layout, entries []HandleEntry) []byte {
	header := layout.HandleTableHeaderSize()
	size := layout.HandleEntrySize()

	buf := make([]byte, header+len(entries)*size)
	putPointer(buf, 0, uint64(len(entries)), layout)

	for i, e := range entries {
		off := header + i*size

		putPointer(buf, off+layout.EntryObjectOffset(), e.ObjectPointer, layout)
		putPointer(buf, off+layout.EntryProcessIDOffset(), uint64(e.PID), layout)
		putPointer(buf, off+layout.EntryHandleValueOffset(), e.Value, layout)
		binary.LittleEndian.PutUint32(buf[off+layout.EntryGrantedAccessOffset():], e.GrantedAccess)
		binary.LittleEndian.PutUint16(buf[off+layout.EntryObjectTypeOffset():], e.TypeIndex)
		binary.LittleEndian.PutUint32(buf[off+layout.EntryAttributesOffset():], e.Attributes)
	}

	return buf
}

// EncodeObjectBasic renders OBJECT_BASIC_INFORMATION.
func EncodeObjectBasic(obj *Object, nameInfoSize uint32) []byte {
	buf := make([]byte, ntapi.ObjectBasicInformationSize)

	binary.LittleEndian.PutUint32(buf[ntapi.BasicGrantedAccessOffset:], obj.GrantedAccess)
	binary.LittleEndian.PutUint32(buf[ntapi.BasicHandleCountOffset:], obj.HandleCount)
	binary.LittleEndian.PutUint32(buf[ntapi.BasicPointerCountOffset:], obj.PointerCount)
	binary.LittleEndian.PutUint32(buf[ntapi.BasicNameInfoSizeOffset:], nameInfoSize)
	binary.LittleEndian.PutUint64(buf[ntapi.BasicCreationTimeOffset:], Filetime(obj.CreationTime))

	return buf
}

// NameInfoSize is the number of bytes OBJECT_NAME_INFORMATION needs for name.
func NameInfoSize(layout ntapi.Layout, name *string) int {
	if name == nil {
		return layout.UnicodeStringSize()
	}

	return layout.UnicodeStringSize() + (len(utf16.Encode([]rune(*name)))+1)*2
}

// EncodeObjectName writes OBJECT_NAME_INFORMATION into buf the way the kernel
// does: the UNICODE_STRING header first, its Buffer pointing at the characters
// placed right after it. buf must be at least NameInfoSize bytes.
func EncodeObjectName(layout ntapi.Layout, buf []byte, name *string) int {
	clear(buf)

	if name == nil {
		return layout.UnicodeStringSize()
	}

	chars := utf16.Encode([]rune(*name))
	dataOffset := layout.UnicodeStringSize()

	binary.LittleEndian.PutUint16(buf[0:], uint16(len(chars)*2))
	binary.LittleEndian.PutUint16(buf[2:], uint16((len(chars)+1)*2))

	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	putPointer(buf, layout.UnicodeBufferOffset(), uint64(base)+uint64(dataOffset), layout)

	for i, c := range chars {
		binary.LittleEndian.PutUint16(buf[dataOffset+2*i:], c)
	}

	return NameInfoSize(layout, name)
}

// Filetime converts t into a Windows FILETIME value. The zero time maps to 0.
func Filetime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}

	return uint64(t.UnixNano()/100) + filetimeEpochDelta
}

func putPointer(buf []byte, off int, v uint64, layout ntapi.Layout) {
	if layout.PointerSize == 4 {
		binary.LittleEndian.PutUint32(buf[off:], uint32(v))
		return
	}

	binary.LittleEndian.PutUint64(buf[off:], v)
}
