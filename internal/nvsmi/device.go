package nvsmi

import (
	"context"
	"strconv"
	"strings"
)

// Device is one physical GPU at snapshot time. Index is the ordinal
// position and can change across reboots; UUID is the only stable key and
// the only safe way to correlate a device across queries.
type Device struct {
	UUID        string   `json:"uuid"`
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	TempC       int      `json:"temperatureC"`
	UtilPercent int      `json:"utilizationPercent"`
	MemUsedMiB  int      `json:"memoryUsedMiB"`
	MemTotalMiB int      `json:"memoryTotalMiB"`
	PowerDrawW  *float64 `json:"powerDrawW,omitempty"`
	PowerLimitW *float64 `json:"powerLimitW,omitempty"`
	SMClockMHz  *int     `json:"smClockMHz,omitempty"`
	FanPercent  *int     `json:"fanPercent,omitempty"`
}

var deviceQueryFields = []string{
	"uuid", "index", "name", "temperature.gpu", "utilization.gpu",
	"memory.used", "memory.total", "power.draw", "power.limit",
	"clocks.sm", "fan.speed",
}

// ReadDevices queries per-device telemetry. Rows that fail any required
// conversion are dropped individually; partial tool output never aborts
// the whole read.
func (c *Collector) ReadDevices(ctx context.Context) []Device {
	out := c.runner.Run(ctx,
		"--query-gpu="+strings.Join(deviceQueryFields, ","),
		"--format=csv,noheader,nounits",
	)

	rows := splitCSVRows(out)
	devices := make([]Device, 0, len(rows))
	for _, cols := range rows {
		if d, ok := parseDeviceRow(cols); ok {
			devices = append(devices, d)
		}
	}
	return devices
}

func parseDeviceRow(cols []string) (Device, bool) {
	if len(cols) < 10 {
		return Device{}, false
	}

	index, err := strconv.Atoi(cols[1])
	if err != nil {
		return Device{}, false
	}
	temp, err := strconv.Atoi(cols[3])
	if err != nil {
		return Device{}, false
	}
	util, err := strconv.Atoi(cols[4])
	if err != nil {
		return Device{}, false
	}
	memUsed, err := strconv.Atoi(cols[5])
	if err != nil {
		return Device{}, false
	}
	memTotal, err := strconv.Atoi(cols[6])
	if err != nil {
		return Device{}, false
	}

	d := Device{
		UUID:        cols[0],
		Index:       index,
		Name:        cols[2],
		TempC:       temp,
		UtilPercent: util,
		MemUsedMiB:  memUsed,
		MemTotalMiB: memTotal,
	}

	var ok bool
	if d.PowerDrawW, ok = optionalFloat(cols[7]); !ok {
		return Device{}, false
	}
	if d.PowerLimitW, ok = optionalFloat(cols[8]); !ok {
		return Device{}, false
	}
	if d.SMClockMHz, ok = optionalInt(cols[9], notAvailable); !ok {
		return Device{}, false
	}
	// Fan speed is reported by fewer boards than the rest; a short row is
	// still a valid device.
	if len(cols) > 10 {
		if d.FanPercent, ok = optionalInt(cols[10], notAvailable); !ok {
			return Device{}, false
		}
	}
	return d, true
}
