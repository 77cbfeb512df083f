package handles

import (
	"testing"

	"github.com/safedep/unmutex/ntapi/ntapitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnumerator(fake *ntapitest.Fake, initial, attempts int) *Enumerator {
	return NewEnumerator(fake, EnumeratorConfig{
		InitialBufferSize: initial,
		MaxAttempts:       attempts,
		Layout:            fake.Layout,
	})
}

func TestEnumerateAllFirstTry(t *testing.T) {
	fake := ntapitest.New()
	fake.AddNamed(10, 0x4, "a")
	fake.AddNamed(20, 0x8, "b")

	records, err := newTestEnumerator(fake, 0x10000, 8).EnumerateAll()
	require.NoError(t, err)

	assert.Len(t, records, 2)
	assert.Equal(t, []int{0x10000}, fake.SystemQueryBufferSizes)
}

func TestEnumerateAllNegotiatesExactSizes(t *testing.T) {
	fake := ntapitest.New()
	fake.AddNamed(10, 0x4, "a")
	fake.AddNamed(10, 0x8, "b")
	fake.AddNamed(30, 0xc, "c")

	fake.SystemTooSmall = []int{0x200, 0x400, 0x300}

	records, err := newTestEnumerator(fake, 0x100, 8).EnumerateAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)

	// K too small reports lead to K+1 queries, each buffer being exactly the
	// size reported by the query before it.
	assert.Equal(t, []int{0x100, 0x200, 0x400, 0x300}, fake.SystemQueryBufferSizes)
}

func TestEnumerateAllGrowsToTableSize(t *testing.T) {
	fake := ntapitest.New()
	for i := range 50 {
		fake.AddNamed(uint32(i), uint64(4*i), "x")
	}

	required := fake.Layout.HandleTableHeaderSize() + 50*fake.Layout.HandleEntrySize()

	records, err := newTestEnumerator(fake, 64, 8).EnumerateAll()
	require.NoError(t, err)

	assert.Len(t, records, 50)
	assert.Equal(t, []int{64, required}, fake.SystemQueryBufferSizes)
}

func TestEnumerateAllDoublesWithoutRequiredSize(t *testing.T) {
	fake := ntapitest.New()
	fake.SystemTooSmall = []int{0, 0}

	_, err := newTestEnumerator(fake, 0x100, 8).EnumerateAll()
	require.NoError(t, err)

	assert.Equal(t, []int{0x100, 0x200, 0x400}, fake.SystemQueryBufferSizes)
}

func TestEnumerateAllExhausted(t *testing.T) {
	fake := ntapitest.New()
	fake.SystemTooSmall = []int{0x200, 0x300, 0x400, 0x500}

	_, err := newTestEnumerator(fake, 0x100, 3).EnumerateAll()
	assert.ErrorIs(t, err, ErrSizeNegotiationExhausted)
	assert.Len(t, fake.SystemQueryBufferSizes, 3)
}

func TestNewEnumeratorDefaults(t *testing.T) {
	e := NewEnumerator(ntapitest.New(), EnumeratorConfig{})

	assert.Equal(t, DefaultInitialBufferSize, e.config.InitialBufferSize)
	assert.Equal(t, DefaultMaxAttempts, e.config.MaxAttempts)
	assert.NotZero(t, e.config.Layout.PointerSize)
}
