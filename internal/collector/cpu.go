// CPU collector — core counts, frequency, usage percentages, and kernel
// counters. Uses gopsutil for the cross-platform parts and procfs for
// the counter block where /proc is mounted.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/procfs"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/hostpulse/agent/internal/models"
)

// CPUCollector collects CPU metrics.
type CPUCollector struct {
	sampleInterval time.Duration
	proc           *procfs.FS // nil where /proc is not available
}

// NewCPUCollector creates a CPU collector. sampleInterval is the blocking
// window used to compute the total usage percentage; zero selects the
// instantaneous reading since the previous call.
func NewCPUCollector(sampleInterval time.Duration) *CPUCollector {
	return &CPUCollector{sampleInterval: sampleInterval}
}

// Name returns the collector identifier.
func (c *CPUCollector) Name() string { return "cpu" }

// Probe verifies CPU enumeration works and, as a best effort, opens
// /proc for the kernel counter block. CPU metrics exist on every
// supported platform, so only a broken enumeration fails the probe.
func (c *CPUCollector) Probe() error {
	if _, err := cpu.Counts(true); err != nil {
		return fmt.Errorf("%w: cpu enumeration: %v", ErrUnavailable, err)
	}
	if fs, err := procfs.NewDefaultFS(); err == nil {
		c.proc = &fs
	}
	return nil
}

// Collect gathers one CPU reading. Per-core percentages are ordered by
// core id, matching gopsutil's stable enumeration order.
func (c *CPUCollector) Collect(ctx context.Context) (any, error) {
	physical, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("physical core count: %w", err)
	}
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("logical core count: %w", err)
	}

	total, err := cpu.PercentWithContext(ctx, c.sampleInterval, false)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}
	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return nil, fmt.Errorf("per-core cpu percent: %w", err)
	}

	m := &models.CPUMetrics{
		PhysicalCores: uint(physical),
		LogicalCores:  uint(logical),
		Frequency:     c.frequency(ctx),
		PercentPerCPU: make([]float64, len(perCore)),
	}
	if len(total) > 0 {
		m.PercentTotal = models.ClampPercent(total[0])
	}
	for i, p := range perCore {
		m.PercentPerCPU[i] = models.ClampPercent(p)
	}

	c.counters(m)
	return m, nil
}

// frequency reads the current CPU frequency plus the scaling limits
// where the platform exposes them. Platforms without frequency
// reporting (and VMs that hide it) get a nil block rather than zeros.
func (c *CPUCollector) frequency(ctx context.Context) *models.CPUFrequency {
	info, err := cpu.InfoWithContext(ctx)
	if err != nil || len(info) == 0 || info[0].Mhz <= 0 {
		return nil
	}
	f := &models.CPUFrequency{CurrentMHz: info[0].Mhz}
	f.MinMHz, f.MaxMHz = freqLimits()
	return f
}

// counters fills the cumulative kernel counters from /proc/stat.
// Platforms without procfs keep the zero values, the same degradation
// the syscall counter already has on Linux.
func (c *CPUCollector) counters(m *models.CPUMetrics) {
	if c.proc == nil {
		return
	}
	stat, err := c.proc.Stat()
	if err != nil {
		return
	}
	m.CtxSwitches = stat.ContextSwitches
	m.Interrupts = stat.IRQTotal
	m.SoftInterrupts = stat.SoftIRQTotal
}
