// GPU collector — per-device metrics through NVIDIA's NVML library.
// The driver handle is owned by the collector and initialized at most
// once; hosts without the driver fail the probe and are never polled.
package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"go.uber.org/zap"

	"github.com/hostpulse/agent/internal/models"
)

// GPUCollector collects NVIDIA GPU metrics via NVML.
type GPUCollector struct {
	logger *zap.Logger

	initOnce    sync.Once
	initialized atomic.Bool
	initErr     error
}

// NewGPUCollector creates a GPU collector. Pass nil for no logging.
func NewGPUCollector(logger *zap.Logger) *GPUCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GPUCollector{logger: logger}
}

// Name returns the collector identifier.
func (c *GPUCollector) Name() string { return "gpu" }

// Probe initializes the NVML handle. Initialization runs exactly once;
// a failed init downgrades the collector permanently and repeated calls
// return the cached error instead of retrying the driver.
func (c *GPUCollector) Probe() error {
	c.initOnce.Do(func() {
		if ret := nvml.Init(); ret != nvml.SUCCESS {
			c.initErr = fmt.Errorf("%w: nvml init: %s", ErrUnavailable, nvml.ErrorString(ret))
			return
		}
		c.initialized.Store(true)
	})
	return c.initErr
}

// Collect enumerates devices and gathers one reading per device, ordered
// by device index ascending. Zero devices is a valid reading, distinct
// from the collector being unavailable.
func (c *GPUCollector) Collect(ctx context.Context) (any, error) {
	if !c.initialized.Load() {
		if c.initErr != nil {
			return nil, c.initErr
		}
		return nil, fmt.Errorf("%w: nvml handle closed", ErrUnavailable)
	}

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvml device count: %s", nvml.ErrorString(ret))
	}

	m := &models.GPUMetrics{
		DeviceCount: count,
		Devices:     make([]models.GPUDevice, 0, count),
	}
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			c.logger.Warn("Skipping GPU device",
				zap.Int("index", i),
				zap.String("error", nvml.ErrorString(ret)))
			continue
		}
		m.Devices = append(m.Devices, c.readDevice(device, uint(i)))
	}

	sortDevices(m.Devices)
	return m, nil
}

// sortDevices orders device readings by index ascending, regardless of
// NVML discovery order. Consumers diff snapshots across rounds and rely
// on this being stable.
func sortDevices(devices []models.GPUDevice) {
	sort.Slice(devices, func(a, b int) bool {
		return devices[a].Index < devices[b].Index
	})
}

// readDevice gathers the per-device fields. Individual NVML query
// failures leave the affected field at zero rather than dropping the
// whole device.
func (c *GPUCollector) readDevice(device nvml.Device, index uint) models.GPUDevice {
	d := models.GPUDevice{Index: index}

	if name, ret := device.GetName(); ret == nvml.SUCCESS {
		d.Name = name
	}
	if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
		d.TemperatureC = float64(temp)
	}
	if power, ret := device.GetPowerUsage(); ret == nvml.SUCCESS {
		d.PowerWatts = float64(power) / 1000.0 // NVML reports milliwatts
	}
	if info, ret := device.GetMemoryInfo(); ret == nvml.SUCCESS {
		d.MemoryTotal = info.Total
		d.MemoryUsed = info.Used
		d.MemoryFree = info.Free
	}
	if util, ret := device.GetUtilizationRates(); ret == nvml.SUCCESS {
		d.Utilization = models.ClampPercent(float64(util.Gpu))
		d.MemoryUtilization = models.ClampPercent(float64(util.Memory))
	}
	// Passively cooled devices report no fan; the field stays absent.
	if fan, ret := device.GetFanSpeed(); ret == nvml.SUCCESS {
		speed := models.ClampPercent(float64(fan))
		d.FanSpeedPercent = &speed
	}

	return d
}

// Close shuts the NVML handle down. Safe to call when the probe failed
// or never ran, and safe against a poll still draining during shutdown:
// the swap guarantees Shutdown runs at most once.
func (c *GPUCollector) Close() {
	if c.initialized.CompareAndSwap(true, false) {
		nvml.Shutdown()
	}
}
