package handles

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf16"

	"github.com/safedep/unmutex/ntapi"
)

const filetimeEpochDelta = 116444736000000000

// ObjectBasicInformation is the decoded OBJECT_BASIC_INFORMATION.
type ObjectBasicInformation struct {
	Attributes    uint32
	GrantedAccess uint32
	HandleCount   uint32
	PointerCount  uint32
	NameInfoSize  uint32
	TypeInfoSize  uint32
	CreationTime  time.Time
}

// DecodeHandleTable decodes a SystemExtendedHandleInformation buffer. The
// record count in the header must fit inside buf.
func DecodeHandleTable(buf []byte, layout ntapi.Layout) ([]SystemHandleRecord, error) {
	header := layout.HandleTableHeaderSize()
	size := layout.HandleEntrySize()

	if len(buf) < header {
		return nil, fmt.Errorf("%w: handle table header needs %d bytes, got %d",
			ErrMalformedBuffer, header, len(buf))
	}

	count := readPointer(buf, 0, layout)
	available := uint64((len(buf) - header) / size)
	if count > available {
		return nil, fmt.Errorf("%w: handle table claims %d entries, buffer holds %d",
			ErrMalformedBuffer, count, available)
	}

	records := make([]SystemHandleRecord, 0, count)
	for off := header; len(records) < int(count); off += size {
		entry := buf[off : off+size]

		records = append(records, SystemHandleRecord{
			ObjectPointer: readPointer(entry, layout.EntryObjectOffset(), layout),
			OwnerPID:      uint32(readPointer(entry, layout.EntryProcessIDOffset(), layout)),
			HandleValue:   readPointer(entry, layout.EntryHandleValueOffset(), layout),
			GrantedAccess: binary.LittleEndian.Uint32(entry[layout.EntryGrantedAccessOffset():]),
			ObjectType:    binary.LittleEndian.Uint16(entry[layout.EntryObjectTypeOffset():]),
			Flags:         binary.LittleEndian.Uint32(entry[layout.EntryAttributesOffset():]),
		})
	}

	return records, nil
}

// DecodeObjectBasicInformation decodes an OBJECT_BASIC_INFORMATION buffer.
func DecodeObjectBasicInformation(buf []byte) (ObjectBasicInformation, error) {
	if len(buf) < ntapi.ObjectBasicInformationSize {
		return ObjectBasicInformation{}, fmt.Errorf("%w: basic information needs %d bytes, got %d",
			ErrMalformedBuffer, ntapi.ObjectBasicInformationSize, len(buf))
	}

	return ObjectBasicInformation{
		Attributes:    binary.LittleEndian.Uint32(buf[ntapi.BasicAttributesOffset:]),
		GrantedAccess: binary.LittleEndian.Uint32(buf[ntapi.BasicGrantedAccessOffset:]),
		HandleCount:   binary.LittleEndian.Uint32(buf[ntapi.BasicHandleCountOffset:]),
		PointerCount:  binary.LittleEndian.Uint32(buf[ntapi.BasicPointerCountOffset:]),
		NameInfoSize:  binary.LittleEndian.Uint32(buf[ntapi.BasicNameInfoSizeOffset:]),
		TypeInfoSize:  binary.LittleEndian.Uint32(buf[ntapi.BasicTypeInfoSizeOffset:]),
		CreationTime:  filetimeToTime(binary.LittleEndian.Uint64(buf[ntapi.BasicCreationTimeOffset:])),
	}, nil
}

// DecodeObjectName decodes OBJECT_NAME_INFORMATION. The UNICODE_STRING Buffer
// is an absolute address; base is the address buf was filled at, so the
// characters live at Buffer-base. Offset and length are checked against buf
// before anything is read. An empty name decodes to nil.
func DecodeObjectName(buf []byte, base uintptr, layout ntapi.Layout) (*string, error) {
	header := layout.UnicodeStringSize()
	if len(buf) < header {
		return nil, fmt.Errorf("%w: name information needs %d bytes, got %d",
			ErrMalformedBuffer, header, len(buf))
	}

	length := int(binary.LittleEndian.Uint16(buf[0:]))
	ptr := readPointer(buf, layout.UnicodeBufferOffset(), layout)

	if length == 0 || ptr == 0 {
		return nil, nil
	}

	if length%2 != 0 {
		return nil, fmt.Errorf("%w: odd name length %d", ErrMalformedBuffer, length)
	}

	if ptr < uint64(base) {
		return nil, fmt.Errorf("%w: name buffer 0x%x precedes base 0x%x", ErrMalformedBuffer, ptr, base)
	}

	offset := ptr - uint64(base)
	if offset < uint64(header) || offset+uint64(length) > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: name [%d, %d) outside buffer of %d bytes",
			ErrMalformedBuffer, offset, offset+uint64(length), len(buf))
	}

	chars := make([]uint16, length/2)
	for i := range chars {
		chars[i] = binary.LittleEndian.Uint16(buf[int(offset)+2*i:])
	}

	name := string(utf16.Decode(chars))
	return &name, nil
}

func readPointer(buf []byte, off int, layout ntapi.Layout) uint64 {
	if layout.PointerSize == 4 {
		return uint64(binary.LittleEndian.Uint32(buf[off:]))
	}

	return binary.LittleEndian.Uint64(buf[off:])
}

func filetimeToTime(ft uint64) time.Time {
	if ft <= filetimeEpochDelta {
		return time.Time{}
	}

	return time.Unix(0, int64(ft-filetimeEpochDelta)*100).UTC()
}
