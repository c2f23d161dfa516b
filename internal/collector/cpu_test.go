package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostpulse/agent/internal/models"
)

func TestCPUCollector(t *testing.T) {
	c := NewCPUCollector(0)
	require.Equal(t, "cpu", c.Name())
	require.NoError(t, c.Probe())

	payload, err := c.Collect(context.Background())
	require.NoError(t, err)

	m, ok := payload.(*models.CPUMetrics)
	require.True(t, ok, "payload type = %T", payload)

	require.GreaterOrEqual(t, m.LogicalCores, uint(1))
	require.LessOrEqual(t, m.PhysicalCores, m.LogicalCores)

	require.GreaterOrEqual(t, m.PercentTotal, 0.0)
	require.LessOrEqual(t, m.PercentTotal, 100.0)
	require.NotEmpty(t, m.PercentPerCPU)
	for i, p := range m.PercentPerCPU {
		require.GreaterOrEqual(t, p, 0.0, "core %d", i)
		require.LessOrEqual(t, p, 100.0, "core %d", i)
	}

	if m.Frequency != nil {
		require.Greater(t, m.Frequency.CurrentMHz, 0.0)
		lo, hi := freqLimits()
		require.Equal(t, lo, m.Frequency.MinMHz)
		require.Equal(t, hi, m.Frequency.MaxMHz)
		if lo > 0 && hi > 0 {
			require.LessOrEqual(t, lo, hi)
		}
	}
}

func TestFreqLimits(t *testing.T) {
	lo, hi := freqLimits()
	require.GreaterOrEqual(t, lo, 0.0)
	require.GreaterOrEqual(t, hi, 0.0)
	if lo > 0 && hi > 0 {
		require.LessOrEqual(t, lo, hi)
	}
}
