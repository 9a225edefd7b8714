package nvsmi

import (
	"context"
	"path/filepath"
	"strconv"
)

// Process is one OS process holding a compute context on one device.
// SMUtilPercent and MemUtilPercent stay nil until the snapshot builder
// finds a matching pmon sample; nothing else writes them.
type Process struct {
	PID            int    `json:"pid"`
	Name           string `json:"name"`
	DeviceUUID     string `json:"deviceUuid"`
	MemUsedMiB     int    `json:"memoryUsedMiB"`
	SMUtilPercent  *int   `json:"smUtilPercent,omitempty"`
	MemUtilPercent *int   `json:"memUtilPercent,omitempty"`
}

// ReadProcesses queries the compute-process list, with the same per-row
// forgiving-drop policy as ReadDevices.
func (c *Collector) ReadProcesses(ctx context.Context) []Process {
	out := c.runner.Run(ctx,
		"--query-compute-apps=pid,process_name,used_memory,gpu_uuid",
		"--format=csv,noheader,nounits",
	)

	rows := splitCSVRows(out)
	procs := make([]Process, 0, len(rows))
	for _, cols := range rows {
		if p, ok := parseProcessRow(cols); ok {
			procs = append(procs, p)
		}
	}
	return procs
}

func parseProcessRow(cols []string) (Process, bool) {
	if len(cols) < 4 {
		return Process{}, false
	}

	pid, err := strconv.Atoi(cols[0])
	if err != nil {
		return Process{}, false
	}

	name := "-"
	if cols[1] != "" {
		name = filepath.Base(cols[1])
	}

	// Unlike device telemetry, an N/A memory reading here means zero, not
	// unknown; the source format does not keep the two apart.
	mem := 0
	if cols[2] != notAvailable {
		mem, err = strconv.Atoi(cols[2])
		if err != nil {
			return Process{}, false
		}
	}

	return Process{PID: pid, Name: name, DeviceUUID: cols[3], MemUsedMiB: mem}, true
}
