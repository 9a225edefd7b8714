package nvsmi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pmonFixture = `# gpu        pid  type    sm   mem   enc   dec    fb   command
# Idx          #   C/G     %     %     %     %    MB   name
    0       1856     G     1     2     -     -    54   Xorg
    0       4321     C    87    41     -     -  2048   python3
    1          -     -     -     -     -     -     -   -
    1       9999     C     -     -     -     -   512   trainer
`

func TestSampleProcessUtil(t *testing.T) {
	c := NewCollector(&stubRunner{pmon: pmonFixture})

	samples := c.SampleProcessUtil(context.Background())

	require.Len(t, samples, 3)

	s := samples[1]
	assert.Equal(t, 0, s.DeviceIndex)
	assert.Equal(t, 4321, s.PID)
	require.NotNil(t, s.SMPercent)
	assert.Equal(t, 87, *s.SMPercent)
	require.NotNil(t, s.MemPercent)
	assert.Equal(t, 41, *s.MemPercent)
	assert.Equal(t, "python3", s.Command)

	// Idle slots are dropped, unknown utilization is kept as nil.
	s = samples[2]
	assert.Equal(t, 9999, s.PID)
	assert.Nil(t, s.SMPercent)
	assert.Nil(t, s.MemPercent)
}

func TestSampleProcessUtilShortRows(t *testing.T) {
	c := NewCollector(&stubRunner{pmon: "0 1234 C 10\nbroken line\n"})

	assert.Empty(t, c.SampleProcessUtil(context.Background()))
}
