package nvsmi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCSVRows(t *testing.T) {
	out := "GPU-aaa, 0, NVIDIA A100\r\n\n  GPU-bbb ,1,  NVIDIA A100  \n\n"

	rows := splitCSVRows(out)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"GPU-aaa", "0", "NVIDIA A100"}, rows[0])
	assert.Equal(t, []string{"GPU-bbb", "1", "NVIDIA A100"}, rows[1])
}

func TestSplitCSVRowsEmpty(t *testing.T) {
	assert.Empty(t, splitCSVRows(""))
	assert.Empty(t, splitCSVRows("\n\n  \n"))
}

func TestSplitColumnRowsSkipsComments(t *testing.T) {
	out := `# gpu        pid  type    sm   mem   enc   dec   command
# Idx          #   C/G     %     %     %     %   name
    0       1856     G     1     2     -     -   Xorg
`

	rows := splitColumnRows(out)

	require.Len(t, rows, 1)
	assert.Equal(t, "1856", rows[0][1])
}

func TestOptionalFloat(t *testing.T) {
	v, ok := optionalFloat("71.25")
	require.True(t, ok)
	require.NotNil(t, v)
	assert.InDelta(t, 71.25, *v, 0.001)

	v, ok = optionalFloat(notAvailable)
	require.True(t, ok)
	assert.Nil(t, v)

	_, ok = optionalFloat("garbage")
	assert.False(t, ok)
}

func TestOptionalInt(t *testing.T) {
	v, ok := optionalInt("42", noData)
	require.True(t, ok)
	require.NotNil(t, v)
	assert.Equal(t, 42, *v)

	v, ok = optionalInt(noData, noData)
	require.True(t, ok)
	assert.Nil(t, v)

	_, ok = optionalInt("4.2", noData)
	assert.False(t, ok)
}
