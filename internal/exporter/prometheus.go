// Package exporter renders Snapshots into the two wire formats: the
// Prometheus text exposition format and nested JSON.
//
// Metric families are built in a fixed order and encoded with the
// reference text encoder, so equal snapshots always produce identical
// bytes. A section without a payload emits no lines at all: absence is
// distinguishable from a zero reading.
package exporter

import (
	"bytes"
	"fmt"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/hostpulse/agent/internal/models"
)

// ContentTypeText is the content type served with the exposition body.
const ContentTypeText = "text/plain; version=0.0.4; charset=utf-8"

// RenderPrometheus serializes a snapshot into the Prometheus text
// exposition format.
func RenderPrometheus(snap *models.Snapshot) ([]byte, error) {
	var b familyBuilder
	if snap.CPU != nil {
		b.cpu(snap.CPU)
	}
	if snap.Memory != nil {
		b.memory(snap.Memory)
	}
	if snap.GPU != nil {
		b.gpu(snap.GPU)
	}

	var buf bytes.Buffer
	for _, mf := range b.families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// familyBuilder accumulates metric families in emission order.
type familyBuilder struct {
	families []*dto.MetricFamily
}

// add appends a family. Families with zero metrics are skipped so an
// empty device list produces no lines.
func (b *familyBuilder) add(name, help string, typ dto.MetricType, metrics ...*dto.Metric) {
	if len(metrics) == 0 {
		return
	}
	b.families = append(b.families, &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   typ.Enum(),
		Metric: metrics,
	})
}

func (b *familyBuilder) gauge(name, help string, value float64) {
	b.add(name, help, dto.MetricType_GAUGE, sample(dto.MetricType_GAUGE, value, nil))
}

func (b *familyBuilder) counter(name, help string, value float64) {
	b.add(name, help, dto.MetricType_COUNTER, sample(dto.MetricType_COUNTER, value, nil))
}

// sample builds one metric with the given label pairs in order. Label
// value escaping is handled by the text encoder.
func sample(typ dto.MetricType, value float64, labels [][2]string) *dto.Metric {
	m := &dto.Metric{}
	for _, l := range labels {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(l[0]),
			Value: proto.String(l[1]),
		})
	}
	if typ == dto.MetricType_COUNTER {
		m.Counter = &dto.Counter{Value: proto.Float64(value)}
	} else {
		m.Gauge = &dto.Gauge{Value: proto.Float64(value)}
	}
	return m
}

func (b *familyBuilder) cpu(m *models.CPUMetrics) {
	b.gauge("cpu_physical_count", "Number of physical CPU cores", float64(m.PhysicalCores))
	b.gauge("cpu_logical_count", "Number of logical CPU cores", float64(m.LogicalCores))

	if f := m.Frequency; f != nil {
		b.gauge("cpu_frequency_current_mhz", "Current CPU frequency in MHz", f.CurrentMHz)
		if f.MinMHz > 0 {
			b.gauge("cpu_frequency_min_mhz", "Minimum CPU frequency in MHz", f.MinMHz)
		}
		if f.MaxMHz > 0 {
			b.gauge("cpu_frequency_max_mhz", "Maximum CPU frequency in MHz", f.MaxMHz)
		}
	}

	b.gauge("cpu_percent_total", "Total CPU usage percentage", m.PercentTotal)

	perCore := make([]*dto.Metric, 0, len(m.PercentPerCPU))
	for i, p := range m.PercentPerCPU {
		perCore = append(perCore, sample(dto.MetricType_GAUGE, p,
			[][2]string{{"core", strconv.Itoa(i)}}))
	}
	b.add("cpu_percent_per_cpu", "CPU usage percentage per core", dto.MetricType_GAUGE, perCore...)

	b.counter("cpu_ctx_switches_total", "Total number of context switches", float64(m.CtxSwitches))
	b.counter("cpu_interrupts_total", "Total number of hardware interrupts", float64(m.Interrupts))
	b.counter("cpu_soft_interrupts_total", "Total number of soft interrupts", float64(m.SoftInterrupts))
	b.counter("cpu_syscalls_total", "Total number of system calls", float64(m.Syscalls))
}

func (b *familyBuilder) memory(m *models.MemoryMetrics) {
	b.gauge("memory_virtual_total_bytes", "Total virtual memory in bytes", float64(m.Virtual.Total))
	b.gauge("memory_virtual_available_bytes", "Available virtual memory in bytes", float64(m.Virtual.Available))
	b.gauge("memory_virtual_used_bytes", "Used virtual memory in bytes", float64(m.Virtual.Used))
	b.gauge("memory_virtual_free_bytes", "Free virtual memory in bytes", float64(m.Virtual.Free))
	b.gauge("memory_virtual_percent", "Virtual memory usage percentage", m.Virtual.Percent)

	b.gauge("memory_swap_total_bytes", "Total swap memory in bytes", float64(m.Swap.Total))
	b.gauge("memory_swap_used_bytes", "Used swap memory in bytes", float64(m.Swap.Used))
	b.gauge("memory_swap_free_bytes", "Free swap memory in bytes", float64(m.Swap.Free))
	b.gauge("memory_swap_percent", "Swap memory usage percentage", m.Swap.Percent)
	b.counter("memory_swap_sin_total", "Total number of memory pages swapped in", float64(m.Swap.Sin))
	b.counter("memory_swap_sout_total", "Total number of memory pages swapped out", float64(m.Swap.Sout))
}

func (b *familyBuilder) gpu(m *models.GPUMetrics) {
	labels := func(d models.GPUDevice) [][2]string {
		return [][2]string{
			{"gpu_id", strconv.FormatUint(uint64(d.Index), 10)},
			{"name", d.Name},
		}
	}

	cols := []struct {
		name  string
		help  string
		value func(d models.GPUDevice) (float64, bool)
	}{
		{"gpu_temperature_celsius", "GPU temperature in Celsius",
			func(d models.GPUDevice) (float64, bool) { return d.TemperatureC, true }},
		{"gpu_power_watts", "GPU power usage in Watts",
			func(d models.GPUDevice) (float64, bool) { return d.PowerWatts, true }},
		{"gpu_memory_total_bytes", "Total GPU memory in bytes",
			func(d models.GPUDevice) (float64, bool) { return float64(d.MemoryTotal), true }},
		{"gpu_memory_used_bytes", "Used GPU memory in bytes",
			func(d models.GPUDevice) (float64, bool) { return float64(d.MemoryUsed), true }},
		{"gpu_memory_free_bytes", "Free GPU memory in bytes",
			func(d models.GPUDevice) (float64, bool) { return float64(d.MemoryFree), true }},
		{"gpu_utilization_percent", "GPU utilization percentage",
			func(d models.GPUDevice) (float64, bool) { return d.Utilization, true }},
		{"gpu_memory_utilization_percent", "GPU memory utilization percentage",
			func(d models.GPUDevice) (float64, bool) { return d.MemoryUtilization, true }},
		{"gpu_fan_speed_percent", "GPU fan speed percentage",
			func(d models.GPUDevice) (float64, bool) {
				if d.FanSpeedPercent == nil {
					return 0, false
				}
				return *d.FanSpeedPercent, true
			}},
	}

	for _, col := range cols {
		var metrics []*dto.Metric
		for _, d := range m.Devices {
			if v, ok := col.value(d); ok {
				metrics = append(metrics, sample(dto.MetricType_GAUGE, v, labels(d)))
			}
		}
		b.add(col.name, col.help, dto.MetricType_GAUGE, metrics...)
	}
}
