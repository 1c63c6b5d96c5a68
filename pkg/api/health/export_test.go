package health

import (
	"time"

	"github.com/shirou/gopsutil/v4/disk"
)

// SetClock fixes the time reported by h.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// SetDiskUsage replaces the disk usage reader of h.
func (h *Handler) SetDiskUsage(usage func(path string) (*disk.UsageStat, error)) {
	h.usage = usage
}
