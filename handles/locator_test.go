package handles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func named(pid uint32, value uint64, name string) ResolvedHandleInfo {
	return ResolvedHandleInfo{
		Record: SystemHandleRecord{OwnerPID: pid, HandleValue: value},
		Name:   &name,
	}
}

func TestFind(t *testing.T) {
	const pid = 4242

	infos := []ResolvedHandleInfo{
		named(pid, 0x10, `\Sessions\1\BaseNamedObjects\Other`),
		named(pid, 0x14, testMutexName),
		named(7, 0x18, testMutexName),
		{Record: SystemHandleRecord{OwnerPID: pid, HandleValue: 0x1c}},
		named(pid, 0x20, testMutexName),
	}

	matches := Find(infos, pid, testMutexName)

	assert.Len(t, matches, 2)
	assert.Equal(t, uint64(0x14), matches[0].Record.HandleValue)
	assert.Equal(t, uint64(0x20), matches[1].Record.HandleValue)
}

func TestFindIsExact(t *testing.T) {
	cases := []struct {
		name string
		got  string
	}{
		{"different case", `\sessions\1\basenamedobjects\app`},
		{"prefix", `\Sessions\1\BaseNamedObjects\AppX`},
		{"base name only", `App`},
		{"other session", `\Sessions\2\BaseNamedObjects\App`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, Find([]ResolvedHandleInfo{named(1, 4, tc.got)}, 1, testMutexName))
		})
	}
}

func TestFindEmpty(t *testing.T) {
	assert.Empty(t, Find(nil, 1, testMutexName))
}
