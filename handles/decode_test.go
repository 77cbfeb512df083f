package handles

import (
	"encoding/binary"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/safedep/unmutex/ntapi"
	"github.com/safedep/unmutex/ntapi/ntapitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHandleTable(t *testing.T) {
	entries := []ntapitest.HandleEntry{
		{PID: 100, Value: 0x4, GrantedAccess: 0x1f0001, TypeIndex: 17, Attributes: 2, ObjectPointer: 0xffff800000001000},
		{PID: 70000, Value: 0x1a8, GrantedAccess: 0x100000, TypeIndex: 36},
	}

	for _, layout := range []ntapi.Layout{ntapi.Layout32, ntapi.Layout64} {
		buf := ntapitest.EncodeHandleTable(layout, entries)

		records, err := DecodeHandleTable(buf, layout)
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, uint32(100), records[0].OwnerPID)
		assert.Equal(t, uint64(0x4), records[0].HandleValue)
		assert.Equal(t, uint32(0x1f0001), records[0].GrantedAccess)
		assert.Equal(t, uint16(17), records[0].ObjectType)
		assert.Equal(t, uint32(2), records[0].Flags)

		assert.Equal(t, uint32(70000), records[1].OwnerPID)
		assert.Equal(t, uint64(0x1a8), records[1].HandleValue)
		assert.Equal(t, uint16(36), records[1].ObjectType)
	}
}

func TestDecodeHandleTableEmpty(t *testing.T) {
	buf := ntapitest.EncodeHandleTable(ntapi.Layout64, nil)

	records, err := DecodeHandleTable(buf, ntapi.Layout64)
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecodeHandleTableBounds(t *testing.T) {
	layout := ntapi.Layout64
	valid := ntapitest.EncodeHandleTable(layout, []ntapitest.HandleEntry{{PID: 1, Value: 4}})

	cases := []struct {
		name string
		buf  []byte
	}{
		{"empty buffer", nil},
		{"short header", valid[:layout.HandleTableHeaderSize()-1]},
		{"truncated entry", valid[:len(valid)-1]},
		{"count beyond buffer", func() []byte {
			b := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint64(b, 1<<40)
			return b
		}()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeHandleTable(tc.buf, layout)
			assert.ErrorIs(t, err, ErrMalformedBuffer)
		})
	}
}

func TestDecodeObjectBasicInformation(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	buf := ntapitest.EncodeObjectBasic(&ntapitest.Object{
		GrantedAccess: 0x1f0001,
		HandleCount:   3,
		PointerCount:  65537,
		CreationTime:  created,
	}, 0x60)

	info, err := DecodeObjectBasicInformation(buf)
	require.NoError(t, err)

	assert.Equal(t, uint32(0x1f0001), info.GrantedAccess)
	assert.Equal(t, uint32(3), info.HandleCount)
	assert.Equal(t, uint32(65537), info.PointerCount)
	assert.Equal(t, uint32(0x60), info.NameInfoSize)
	assert.True(t, created.Equal(info.CreationTime))

	_, err = DecodeObjectBasicInformation(buf[:20])
	assert.ErrorIs(t, err, ErrMalformedBuffer)
}

func TestDecodeObjectBasicInformationZeroTime(t *testing.T) {
	buf := ntapitest.EncodeObjectBasic(&ntapitest.Object{}, 0)

	info, err := DecodeObjectBasicInformation(buf)
	require.NoError(t, err)
	assert.True(t, info.CreationTime.IsZero())
}

// nameBuffer lays out a UNICODE_STRING for a 64 bit process whose Buffer field
// is base+dataOffset, as if the kernel had filled it at address base.
func nameBuffer(size int, base uint64, dataOffset int, length int, name string) []byte {
	buf := make([]byte, size)
	binary.LittleEndian.PutUint16(buf[0:], uint16(length))
	binary.LittleEndian.PutUint16(buf[2:], uint16(length+2))
	binary.LittleEndian.PutUint64(buf[8:], base+uint64(dataOffset))

	for i, c := range utf16.Encode([]rune(name)) {
		if dataOffset+2*i+2 <= len(buf) {
			binary.LittleEndian.PutUint16(buf[dataOffset+2*i:], c)
		}
	}

	return buf
}

func TestDecodeObjectName(t *testing.T) {
	const base = 0x7ff600001000
	name := `\Sessions\1\BaseNamedObjects\App`
	length := len(name) * 2

	t.Run("valid", func(t *testing.T) {
		buf := nameBuffer(16+length+2, base, 16, length, name)

		got, err := DecodeObjectName(buf, base, ntapi.Layout64)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, name, *got)
	})

	t.Run("unnamed", func(t *testing.T) {
		buf := make([]byte, 16)

		got, err := DecodeObjectName(buf, base, ntapi.Layout64)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	malformed := []struct {
		name string
		buf  []byte
	}{
		{"short header", make([]byte, 8)},
		{"length past end", nameBuffer(16+length-2, base, 16, length, name)},
		{"buffer before base", nameBuffer(16+length, base-0x100, 16, length, name)},
		{"buffer inside header", nameBuffer(16+length, base, 4, length, name)},
		{"odd length", nameBuffer(16+length, base, 16, 7, name)},
	}

	for _, tc := range malformed {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeObjectName(tc.buf, base, ntapi.Layout64)
			assert.ErrorIs(t, err, ErrMalformedBuffer)
		})
	}
}
