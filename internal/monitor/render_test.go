package monitor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomek7667/gputop/internal/nvsmi"
)

type fakeRunner struct {
	gpu       string
	apps      string
	pmon      string
	available bool
}

func (f *fakeRunner) Run(_ context.Context, args ...string) string {
	switch {
	case len(args) == 0:
		return ""
	case strings.HasPrefix(args[0], "--query-gpu="):
		return f.gpu
	case strings.HasPrefix(args[0], "--query-compute-apps="):
		return f.apps
	case args[0] == "pmon":
		return f.pmon
	}
	return ""
}

func (f *fakeRunner) Available() bool { return f.available }

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512.0/(1024*1024)))
	assert.Equal(t, "1 KB", humanBytes(1.0/1024))
	assert.Equal(t, "100 MB", humanBytes(100))
	assert.Equal(t, "2 GB", humanBytes(2048))
	assert.Equal(t, "3.0 PB", humanBytes(3*1024*1024*1024))
}

func TestFormatPower(t *testing.T) {
	draw, limit := 312.55, 450.0

	assert.Equal(t, "N/A", formatPower(nvsmi.Device{}))
	assert.Equal(t, "313/450 W", formatPower(nvsmi.Device{PowerDrawW: &draw, PowerLimitW: &limit}))
	assert.Equal(t, "N/A/450 W", formatPower(nvsmi.Device{PowerLimitW: &limit}))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0m", formatUptime(0))
	assert.Equal(t, "42m", formatUptime(42*time.Minute))
	assert.Equal(t, "3h12m", formatUptime(3*time.Hour+12*time.Minute))
	assert.Equal(t, "2d5h", formatUptime(53*time.Hour))
}

func TestSortedByUtil(t *testing.T) {
	sm10, sm90 := 10, 90
	mu5, mu40 := 5, 40
	procs := []nvsmi.Process{
		{PID: 1, SMUtilPercent: &sm10, MemUtilPercent: &mu40},
		{PID: 2},
		{PID: 3, SMUtilPercent: &sm90, MemUtilPercent: &mu5},
		{PID: 4, SMUtilPercent: &sm10, MemUtilPercent: &mu5},
	}

	out := sortedByUtil(procs)

	require.Len(t, out, 4)
	assert.Equal(t, []int{3, 1, 4, 2}, []int{out[0].PID, out[1].PID, out[2].PID, out[3].PID})
	// Original order is preserved.
	assert.Equal(t, 1, procs[0].PID)
}

func TestRunOnceRendersDevicesAndProcesses(t *testing.T) {
	m := New(nvsmi.NewCollector(&fakeRunner{
		available: true,
		gpu: `GPU-aaa, 0, NVIDIA GeForce RTX 4090, 54, 93, 20219, 24564, 312.55, 450.00, 2520, 61
GPU-bbb, 1, NVIDIA A100, 41, 0, 3, 40960, N/A, 400.00, N/A, N/A
`,
		apps: "4321, /usr/bin/python3, 2048, GPU-aaa\n",
		pmon: "0 4321 C 87 41 - - 2048 python3\n",
	}), Config{})
	var buf bytes.Buffer
	m.out = &buf

	require.NoError(t, m.RunOnce(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "NVIDIA GeForce RTX 4090")
	assert.Contains(t, out, "20219/24564 MiB")
	assert.Contains(t, out, "313/450 W")
	assert.Contains(t, out, "python3")
	assert.Contains(t, out, "2 GB")
	assert.Contains(t, out, "(no compute processes)")
	assert.NotContains(t, out, ansiClear)
}

func TestRunOnceCapsProcessRows(t *testing.T) {
	var apps strings.Builder
	for pid := 100; pid < 110; pid++ {
		fmt.Fprintf(&apps, "%d, worker, 64, GPU-aaa\n", pid)
	}
	m := New(nvsmi.NewCollector(&fakeRunner{
		available: true,
		gpu:       "GPU-aaa, 0, RTX 4090, 54, 93, 20219, 24564, 312.55, 450.00, 2520, 61\n",
		apps:      apps.String(),
	}), Config{MaxProcs: 3})
	var buf bytes.Buffer
	m.out = &buf

	require.NoError(t, m.RunOnce(context.Background()))

	assert.Contains(t, buf.String(), "... and 7 more")
}

func TestRunOnceToolAbsent(t *testing.T) {
	m := New(nvsmi.NewCollector(&fakeRunner{}), Config{})
	var buf bytes.Buffer
	m.out = &buf

	err := m.RunOnce(context.Background())

	assert.ErrorIs(t, err, ErrToolAbsent)
	assert.Empty(t, buf.String())
}

func TestRunStopsOnQuitLine(t *testing.T) {
	m := New(nvsmi.NewCollector(&fakeRunner{available: true}), Config{Interval: 10 * time.Millisecond})
	var buf bytes.Buffer
	m.out = &buf
	m.in = strings.NewReader("Q\n")

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop on quit line")
	}
}
