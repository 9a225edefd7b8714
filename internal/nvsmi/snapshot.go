package nvsmi

import (
	"context"
	"sort"
	"time"
)

// Snapshot is the complete result of one refresh cycle, ready for
// presentation. Devices are ordered by index; ProcessesByDevice has exactly
// one entry per device index in Devices (possibly empty) and never an entry
// for an index that is not in Devices.
type Snapshot struct {
	TakenAt           time.Time         `json:"takenAt"`
	Devices           []Device          `json:"devices"`
	ProcessesByDevice map[int][]Process `json:"processesByDevice"`
}

// Collector runs the three nvidia-smi queries of a refresh cycle and
// reconciles their output. It holds no state across cycles.
type Collector struct {
	runner Runner
}

func NewCollector(r Runner) *Collector {
	if r == nil {
		r = NewRunner("")
	}
	return &Collector{runner: r}
}

// Available reports whether the underlying tool can be invoked at all.
func (c *Collector) Available() bool {
	if a, ok := c.runner.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}

type slotKey struct {
	index int
	pid   int
}

// Snapshot builds one consistent view from the three queries. No input
// condition makes it fail: an absent tool, empty query output, or corrupt
// rows all degrade to fewer records.
func (c *Collector) Snapshot(ctx context.Context) Snapshot {
	devices := c.ReadDevices(ctx)
	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Index < devices[j].Index
	})

	uuidToIndex := make(map[string]int, len(devices))
	for _, d := range devices {
		uuidToIndex[d.UUID] = d.Index
	}

	procs := c.ReadProcesses(ctx)
	samples := c.SampleProcessUtil(ctx)

	// pmon may report the same (index, pid) twice in one capture; the tool
	// gives no ordering guarantee, so last-write-wins is as good as any.
	utilBySlot := make(map[slotKey]ProcSample, len(samples))
	for _, s := range samples {
		utilBySlot[slotKey{s.DeviceIndex, s.PID}] = s
	}

	byDevice := make(map[int][]Process, len(devices))
	for _, d := range devices {
		byDevice[d.Index] = []Process{}
	}

	for _, p := range procs {
		idx, ok := uuidToIndex[p.DeviceUUID]
		if !ok {
			// Device disappeared (or its row was dropped) between queries;
			// the process has no home in this snapshot.
			continue
		}
		if s, ok := utilBySlot[slotKey{idx, p.PID}]; ok {
			p.SMUtilPercent = s.SMPercent
			p.MemUtilPercent = s.MemPercent
		}
		byDevice[idx] = append(byDevice[idx], p)
	}

	for idx := range byDevice {
		sortProcesses(byDevice[idx])
	}

	return Snapshot{TakenAt: time.Now(), Devices: devices, ProcessesByDevice: byDevice}
}

// sortProcesses orders by SM utilization descending, then VRAM descending.
// A nil utilization sorts as zero; the stored value stays nil.
func sortProcesses(procs []Process) {
	sort.SliceStable(procs, func(i, j int) bool {
		a, b := intOrZero(procs[i].SMUtilPercent), intOrZero(procs[j].SMUtilPercent)
		if a != b {
			return a > b
		}
		return procs[i].MemUsedMiB > procs[j].MemUsedMiB
	})
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
