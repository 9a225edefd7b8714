package monitor

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type hostStats struct {
	Hostname      string
	Uptime        time.Duration
	CPUPercent    float64
	MemUsedBytes  uint64
	MemTotalBytes uint64
	Processes     int
}

// sampleHost gathers the header line fields. Every probe is independent;
// a failed one leaves its zero value and the frame still renders.
func (m *Monitor) sampleHost() hostStats {
	var hs hostStats

	if info, err := host.Info(); err == nil {
		hs.Hostname = info.Hostname
		hs.Uptime = time.Duration(info.Uptime) * time.Second
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		hs.MemUsedBytes = vm.Used
		hs.MemTotalBytes = vm.Total
	}
	if pids, err := process.Pids(); err == nil {
		hs.Processes = len(pids)
	}
	hs.CPUPercent = m.sampleCPUPercent()

	return hs
}

// sampleCPUPercent derives usage from deltas between successive samples.
// The first call primes the baseline and reports zero.
func (m *Monitor) sampleCPUPercent() float64 {
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		return 0
	}

	t := times[0]
	total := t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal + t.Guest + t.GuestNice
	idle := t.Idle + t.Iowait

	if !m.havePrevCPU {
		m.prevTotal = total
		m.prevIdle = idle
		m.havePrevCPU = true
		return 0
	}

	totalDelta := total - m.prevTotal
	idleDelta := idle - m.prevIdle
	m.prevTotal = total
	m.prevIdle = idle

	if totalDelta <= 0 {
		return 0
	}
	usage := (totalDelta - idleDelta) / totalDelta * 100
	if usage < 0 {
		return 0
	}
	if usage > 100 {
		return 100
	}
	return usage
}
