package monitor

import (
	"sort"
	"strings"
	"time"

	"github.com/jaypipes/ghw"
)

const deviceMetaTTL = 30 * time.Second

// deviceMeta is slow-moving PCI info that nvidia-smi does not report.
type deviceMeta struct {
	Vendor string
	Driver string
}

// deviceMetaByIndex pairs ghw graphics cards with telemetry device indexes.
// ghw cannot see the NVIDIA UUID, so NVIDIA cards are matched positionally:
// the i-th NVIDIA card maps to the i-th telemetry index. Lookups are cached
// because PCI enumeration is far slower than a refresh cycle.
func (m *Monitor) deviceMetaByIndex(indexes []int) map[int]deviceMeta {
	if m.meta != nil && time.Since(m.metaUpdatedAt) < deviceMetaTTL {
		return m.meta
	}

	meta := make(map[int]deviceMeta)
	info, err := ghw.GPU()
	if err == nil {
		var nvidia []deviceMeta
		for _, card := range info.GraphicsCards {
			if card.DeviceInfo == nil || card.DeviceInfo.Vendor == nil {
				continue
			}
			vendor := strings.TrimSpace(card.DeviceInfo.Vendor.Name)
			if !strings.Contains(strings.ToLower(vendor), "nvidia") {
				continue
			}
			nvidia = append(nvidia, deviceMeta{
				Vendor: vendor,
				Driver: strings.TrimSpace(card.DeviceInfo.Driver),
			})
		}

		sorted := append([]int(nil), indexes...)
		sort.Ints(sorted)
		for i, idx := range sorted {
			if i >= len(nvidia) {
				break
			}
			meta[idx] = nvidia[i]
		}
	}

	m.meta = meta
	m.metaUpdatedAt = time.Now()
	return meta
}
