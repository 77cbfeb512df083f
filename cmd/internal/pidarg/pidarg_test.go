package pidarg

import (
	"testing"

	"github.com/safedep/unmutex/usefulerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	pid, err := Parse("4242")
	require.NoError(t, err)
	assert.Equal(t, uint32(4242), pid)

	for _, arg := range []string{"", "0", "-1", "abc", "4294967296"} {
		_, err := Parse(arg)
		require.Error(t, err, arg)

		ue, ok := usefulerror.AsUsefulError(err)
		require.True(t, ok)
		assert.Equal(t, usefulerror.ErrCodeInvalidArgument, ue.Code())
	}
}
