package monitor

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/tomek7667/gputop/internal/nvsmi"
)

const (
	ansiClear    = "\x1b[2J\x1b[H"
	fallbackCols = 120
)

func (m *Monitor) renderFrame(ctx context.Context, clear bool) {
	width := m.terminalWidth()
	var b strings.Builder

	hs := m.sampleHost()
	now := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(&b, "gputop  %s  every %gs  host %s  up %s  cpu %.1f%%  mem %s/%s  procs %d\n",
		now, m.cfg.Interval.Seconds(), hs.Hostname, formatUptime(hs.Uptime), hs.CPUPercent,
		humanBytes(float64(hs.MemUsedBytes)/(1024*1024)),
		humanBytes(float64(hs.MemTotalBytes)/(1024*1024)),
		hs.Processes,
	)
	b.WriteString(strings.Repeat("-", width) + "\n")

	if !m.collector.Available() {
		b.WriteString("nvidia-smi not found; install the NVIDIA driver or pass --nvidia-smi\n")
		m.writeFrame(b.String(), width, clear)
		return
	}

	snap := m.collector.Snapshot(ctx)
	if len(snap.Devices) == 0 {
		b.WriteString("no NVIDIA devices reported\n")
		m.writeFrame(b.String(), width, clear)
		return
	}

	indexes := make([]int, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		indexes = append(indexes, d.Index)
	}
	meta := m.deviceMetaByIndex(indexes)

	fmt.Fprintf(&b, "%-4s %-30s %4s  %4s  %-16s  %-10s  %-7s %4s\n",
		"GPU", "Name", "Temp", "Util", "Memory", "Power", "SMClk", "Fan")
	for _, d := range snap.Devices {
		fmt.Fprintf(&b, "%-4d %-30.30s %3dC  %3d%%  %-16s  %-10s  %-7s %4s",
			d.Index, d.Name, d.TempC, d.UtilPercent,
			fmt.Sprintf("%d/%d MiB", d.MemUsedMiB, d.MemTotalMiB),
			formatPower(d), formatClock(d.SMClockMHz), formatFan(d.FanPercent),
		)
		if dm, ok := meta[d.Index]; ok && dm.Driver != "" {
			fmt.Fprintf(&b, "  [%s]", dm.Driver)
		}
		b.WriteByte('\n')
	}

	for _, d := range snap.Devices {
		fmt.Fprintf(&b, "\nGPU %d processes:\n", d.Index)
		procs := snap.ProcessesByDevice[d.Index]
		if len(procs) == 0 {
			b.WriteString("  (no compute processes)\n")
			continue
		}
		if m.cfg.SortByUtil {
			procs = sortedByUtil(procs)
		}
		fmt.Fprintf(&b, "  %-8s %3s  %4s  %-9s  %s\n", "PID", "SM%", "Mem%", "VRAM", "Process")
		for i, p := range procs {
			if i >= m.cfg.MaxProcs {
				fmt.Fprintf(&b, "  ... and %d more\n", len(procs)-m.cfg.MaxProcs)
				break
			}
			fmt.Fprintf(&b, "  %-8d %3s  %4s  %-9s  %s\n",
				p.PID, formatOptPercent(p.SMUtilPercent), formatOptPercent(p.MemUtilPercent),
				humanBytes(float64(p.MemUsedMiB)), p.Name)
		}
	}

	m.writeFrame(b.String(), width, clear)
}

// writeFrame truncates every line to the terminal width and emits the frame
// in a single write, which keeps redraws from flickering.
func (m *Monitor) writeFrame(frame string, width int, clear bool) {
	lines := strings.Split(frame, "\n")
	for i, line := range lines {
		if r := []rune(line); len(r) > width {
			lines[i] = string(r[:width])
		}
	}
	frame = strings.Join(lines, "\n")
	if clear {
		frame = ansiClear + frame
	}
	fmt.Fprint(m.out, frame)
}

// sortedByUtil re-orders a display copy by instantaneous utilization
// instead of the snapshot's VRAM tiebreak. The snapshot itself stays
// untouched.
func sortedByUtil(procs []nvsmi.Process) []nvsmi.Process {
	out := append([]nvsmi.Process(nil), procs...)
	key := func(p nvsmi.Process) (int, int) {
		sm, mu := 0, 0
		if p.SMUtilPercent != nil {
			sm = *p.SMUtilPercent
		}
		if p.MemUtilPercent != nil {
			mu = *p.MemUtilPercent
		}
		return sm, mu
	}
	sort.SliceStable(out, func(i, j int) bool {
		aSM, aMU := key(out[i])
		bSM, bMU := key(out[j])
		if aSM != bSM {
			return aSM > bSM
		}
		return aMU > bMU
	})
	return out
}

func (m *Monitor) terminalWidth() int {
	f, ok := m.out.(*os.File)
	if !ok {
		return fallbackCols
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallbackCols
	}
	return w
}

func formatPower(d nvsmi.Device) string {
	if d.PowerDrawW == nil && d.PowerLimitW == nil {
		return "N/A"
	}
	draw, limit := "N/A", "N/A"
	if d.PowerDrawW != nil {
		draw = fmt.Sprintf("%.0f", *d.PowerDrawW)
	}
	if d.PowerLimitW != nil {
		limit = fmt.Sprintf("%.0f", *d.PowerLimitW)
	}
	return draw + "/" + limit + " W"
}

func formatClock(mhz *int) string {
	if mhz == nil {
		return "N/A"
	}
	return fmt.Sprintf("%dMHz", *mhz)
}

func formatFan(pct *int) string {
	if pct == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d%%", *pct)
}

func formatOptPercent(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

// humanBytes renders a MiB quantity in the largest unit that keeps the
// value under 1024.
func humanBytes(mib float64) string {
	value := mib * 1024 * 1024
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if value < 1024 {
			return fmt.Sprintf("%.0f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f PB", value)
}

func formatUptime(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
