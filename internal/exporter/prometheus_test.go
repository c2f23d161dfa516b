package exporter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hostpulse/agent/internal/models"
)

func scenarioSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Timestamp: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		CPU: &models.CPUMetrics{
			PhysicalCores: 4,
			LogicalCores:  8,
			PercentTotal:  25.5,
			PercentPerCPU: []float64{20.0, 30.0, 25.0, 27.0},
			CtxSwitches:   1000,
			Interrupts:    500,
		},
		Memory: &models.MemoryMetrics{
			Virtual: models.VirtualMemory{
				Total:   16000000000,
				Used:    7000000000,
				Percent: 43.75,
			},
		},
		Status: map[string]models.SectionStatus{
			"cpu":    {State: models.StatusOK},
			"memory": {State: models.StatusOK},
			"gpu":    {State: models.StatusUnavailable},
		},
	}
}

func gpuSnapshot(names ...string) *models.Snapshot {
	fan := 75.0
	devices := make([]models.GPUDevice, 0, len(names))
	for i, name := range names {
		d := models.GPUDevice{
			Index:             uint(i),
			Name:              name,
			TemperatureC:      60 + float64(i),
			PowerWatts:        200.5,
			MemoryTotal:       1024,
			MemoryUsed:        512,
			MemoryFree:        512,
			Utilization:       85.5,
			MemoryUtilization: 40,
		}
		if i == 0 {
			d.FanSpeedPercent = &fan
		}
		devices = append(devices, d)
	}
	return &models.Snapshot{
		Timestamp: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		GPU:       &models.GPUMetrics{DeviceCount: len(devices), Devices: devices},
		Status: map[string]models.SectionStatus{
			"gpu": {State: models.StatusOK},
		},
	}
}

// Unavailable collectors emit no lines: a scrape during partial hardware
// failure renders the healthy families and nothing else.
func TestRenderPrometheus_Scenario(t *testing.T) {
	out, err := RenderPrometheus(scenarioSnapshot())
	require.NoError(t, err)
	text := string(out)

	require.Contains(t, text, "cpu_physical_count 4\n")
	require.Contains(t, text, "cpu_logical_count 8\n")
	require.Contains(t, text, "cpu_percent_total 25.5\n")
	require.Contains(t, text, `cpu_percent_per_cpu{core="0"} 20`)
	require.Contains(t, text, `cpu_percent_per_cpu{core="3"} 27`)
	require.Contains(t, text, "cpu_ctx_switches_total 1000\n")
	require.Contains(t, text, "memory_virtual_percent 43.75\n")

	for _, line := range strings.Split(text, "\n") {
		require.False(t, strings.HasPrefix(line, "gpu_"),
			"unavailable gpu collector must emit no lines, got %q", line)
	}
}

func TestRenderPrometheus_TypeLines(t *testing.T) {
	out, err := RenderPrometheus(scenarioSnapshot())
	require.NoError(t, err)
	text := string(out)

	require.Contains(t, text, "# TYPE cpu_percent_total gauge\n")
	require.Contains(t, text, "# TYPE cpu_ctx_switches_total counter\n")
	require.Contains(t, text, "# HELP memory_virtual_percent Virtual memory usage percentage\n")
}

// Identical snapshots must serialize to identical bytes.
func TestRenderPrometheus_Deterministic(t *testing.T) {
	first, err := RenderPrometheus(gpuSnapshot("GPU A", "GPU B"))
	require.NoError(t, err)
	second, err := RenderPrometheus(gpuSnapshot("GPU A", "GPU B"))
	require.NoError(t, err)
	require.Equal(t, first, second)

	full1, err := RenderPrometheus(scenarioSnapshot())
	require.NoError(t, err)
	full2, err := RenderPrometheus(scenarioSnapshot())
	require.NoError(t, err)
	require.Equal(t, full1, full2)
}

func TestRenderPrometheus_GPULabels(t *testing.T) {
	out, err := RenderPrometheus(gpuSnapshot("NVIDIA GeForce RTX 3080", "NVIDIA A100"))
	require.NoError(t, err)
	text := string(out)

	require.Contains(t, text, `gpu_temperature_celsius{gpu_id="0",name="NVIDIA GeForce RTX 3080"} 60`)
	require.Contains(t, text, `gpu_temperature_celsius{gpu_id="1",name="NVIDIA A100"} 61`)
	require.Contains(t, text, `gpu_memory_used_bytes{gpu_id="0",name="NVIDIA GeForce RTX 3080"} 512`)

	// Only the first device has a fan; the second emits no fan line.
	require.Contains(t, text, `gpu_fan_speed_percent{gpu_id="0",name="NVIDIA GeForce RTX 3080"} 75`)
	require.NotContains(t, text, `gpu_fan_speed_percent{gpu_id="1"`)
}

// Label values follow exposition quoting: quotes, backslashes, and
// newlines are escaped.
func TestRenderPrometheus_LabelEscaping(t *testing.T) {
	out, err := RenderPrometheus(gpuSnapshot("ACME \"Turbo\" \\ GPU"))
	require.NoError(t, err)
	require.Contains(t, string(out), `name="ACME \"Turbo\" \\ GPU"`)

	out, err = RenderPrometheus(gpuSnapshot("line1\nline2"))
	require.NoError(t, err)
	require.Contains(t, string(out), `name="line1\nline2"`)
}

// The driver being present with zero devices is valid and renders no
// gpu lines, same as absence on the wire but distinct in JSON.
func TestRenderPrometheus_EmptyDeviceList(t *testing.T) {
	snap := &models.Snapshot{
		Timestamp: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		GPU:       &models.GPUMetrics{DeviceCount: 0, Devices: []models.GPUDevice{}},
		Status:    map[string]models.SectionStatus{"gpu": {State: models.StatusOK}},
	}

	out, err := RenderPrometheus(snap)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestRenderPrometheus_FrequencyOmittedWhenAbsent(t *testing.T) {
	snap := scenarioSnapshot()
	out, err := RenderPrometheus(snap)
	require.NoError(t, err)
	require.NotContains(t, string(out), "cpu_frequency_")

	snap.CPU.Frequency = &models.CPUFrequency{CurrentMHz: 2400, MinMHz: 2200, MaxMHz: 3200}
	out, err = RenderPrometheus(snap)
	require.NoError(t, err)
	require.Contains(t, string(out), "cpu_frequency_current_mhz 2400\n")
	require.Contains(t, string(out), "cpu_frequency_min_mhz 2200\n")
	require.Contains(t, string(out), "cpu_frequency_max_mhz 3200\n")
}
