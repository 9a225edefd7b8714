package nvsmi

import (
	"context"
	"strconv"
)

// ProcSample is one row of a one-shot `pmon` capture: instantaneous SM and
// memory-controller utilization for a (device index, pid) slot. The command
// name is diagnostic only; the compute-process query owns naming.
type ProcSample struct {
	DeviceIndex int
	PID         int
	SMPercent   *int
	MemPercent  *int
	Command     string
}

// SampleProcessUtil runs a single pmon iteration. Layout per row:
// gpu pid type sm mem enc dec fb command; rows with fewer than nine fields
// are unusable, rows whose pid is "-" are idle slots and carry no sample.
func (c *Collector) SampleProcessUtil(ctx context.Context) []ProcSample {
	out := c.runner.Run(ctx, "pmon", "-c", "1", "-s", "um")

	rows := splitColumnRows(out)
	samples := make([]ProcSample, 0, len(rows))
	for _, cols := range rows {
		if s, ok := parsePmonRow(cols); ok {
			samples = append(samples, s)
		}
	}
	return samples
}

func parsePmonRow(cols []string) (ProcSample, bool) {
	if len(cols) < 9 {
		return ProcSample{}, false
	}

	index, err := strconv.Atoi(cols[0])
	if err != nil {
		return ProcSample{}, false
	}
	if cols[1] == noData {
		return ProcSample{}, false
	}
	pid, err := strconv.Atoi(cols[1])
	if err != nil {
		return ProcSample{}, false
	}

	s := ProcSample{DeviceIndex: index, PID: pid, Command: cols[8]}

	var ok bool
	if s.SMPercent, ok = optionalInt(cols[3], noData); !ok {
		return ProcSample{}, false
	}
	if s.MemPercent, ok = optionalInt(cols[4], noData); !ok {
		return ProcSample{}, false
	}
	return s, true
}
