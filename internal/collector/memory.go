// Memory collector — virtual and swap memory via gopsutil. Hosts without
// swap keep a zeroed swap block rather than failing the poll.
package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hostpulse/agent/internal/models"
)

// MemoryCollector collects RAM and swap metrics.
type MemoryCollector struct{}

// NewMemoryCollector creates a new memory collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Name returns the collector identifier.
func (c *MemoryCollector) Name() string { return "memory" }

// Probe verifies virtual memory statistics can be read on this host.
func (c *MemoryCollector) Probe() error {
	if _, err := mem.VirtualMemory(); err != nil {
		return fmt.Errorf("%w: virtual memory: %v", ErrUnavailable, err)
	}
	return nil
}

// Collect gathers one memory reading.
func (c *MemoryCollector) Collect(ctx context.Context) (any, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}

	m := &models.MemoryMetrics{
		Virtual: models.VirtualMemory{
			Total:     v.Total,
			Available: v.Available,
			Used:      v.Used,
			Free:      v.Free,
			Percent:   models.ClampPercent(v.UsedPercent),
		},
	}

	// Swap is optional; a failed read degrades to zeros.
	if s, err := mem.SwapMemoryWithContext(ctx); err == nil {
		m.Swap = models.SwapMemory{
			Total:   s.Total,
			Used:    s.Used,
			Free:    s.Free,
			Percent: models.ClampPercent(s.UsedPercent),
			Sin:     s.Sin,
			Sout:    s.Sout,
		}
	}

	return m, nil
}
