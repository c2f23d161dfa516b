// Package models defines the snapshot data structures shared by collectors
// and exporters. A Snapshot is assembled once per collection round and is
// read-only afterwards; exporters never mutate it.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status describes the outcome of a collector for one collection round.
type Status int

const (
	// StatusOK means the collector produced a fresh reading this round.
	StatusOK Status = iota

	// StatusUnavailable means the hardware or driver is absent on this host.
	// Decided once at probe time and permanent for the process lifetime.
	StatusUnavailable

	// StatusError means this round's poll failed; the collector may succeed
	// again next round.
	StatusError
)

// String returns the wire representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the string form produced by MarshalJSON.
func (s *Status) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "ok":
		*s = StatusOK
	case "unavailable":
		*s = StatusUnavailable
	case "error":
		*s = StatusError
	default:
		return fmt.Errorf("unknown status %q", v)
	}
	return nil
}

// ClampPercent bounds a percentage reading to [0, 100]. Collectors pass
// every percent field through it so exporters can rely on the range.
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// CPUFrequency holds CPU frequency readings in MHz. The whole block is
// absent on platforms without frequency reporting; min and max are zero
// (and omitted from JSON) where the platform only exposes the current
// frequency.
type CPUFrequency struct {
	CurrentMHz float64 `json:"current_mhz"`
	MinMHz     float64 `json:"min_mhz,omitempty"`
	MaxMHz     float64 `json:"max_mhz,omitempty"`
}

// CPUMetrics is one reading from the CPU collector. The counter fields
// are cumulative since boot and monotonically non-decreasing; Syscalls
// stays zero on platforms that do not account system calls.
type CPUMetrics struct {
	PhysicalCores  uint          `json:"physical_cores"`
	LogicalCores   uint          `json:"logical_cores"`
	Frequency      *CPUFrequency `json:"frequency,omitempty"`
	PercentTotal   float64       `json:"percent_total"`
	PercentPerCPU  []float64     `json:"percent_per_cpu"`
	CtxSwitches    uint64        `json:"ctx_switches"`
	Interrupts     uint64        `json:"interrupts"`
	SoftInterrupts uint64        `json:"soft_interrupts"`
	Syscalls       uint64        `json:"syscalls"`
}

// VirtualMemory holds RAM usage in bytes plus the used percentage.
type VirtualMemory struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Used      uint64  `json:"used"`
	Free      uint64  `json:"free"`
	Percent   float64 `json:"percent"`
}

// SwapMemory holds swap usage in bytes plus the cumulative page-in and
// page-out counters. All zeros when the host has no swap configured.
type SwapMemory struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
	Sin     uint64  `json:"sin"`
	Sout    uint64  `json:"sout"`
}

// MemoryMetrics is one reading from the memory collector.
type MemoryMetrics struct {
	Virtual VirtualMemory `json:"virtual"`
	Swap    SwapMemory    `json:"swap"`
}

// GPUDevice is one reading for a single GPU. Index is stable across
// rounds for a given device; FanSpeedPercent is absent on passively
// cooled devices.
type GPUDevice struct {
	Index             uint     `json:"index"`
	Name              string   `json:"name"`
	TemperatureC      float64  `json:"temperature_celsius"`
	PowerWatts        float64  `json:"power_watts"`
	MemoryTotal       uint64   `json:"memory_total"`
	MemoryUsed        uint64   `json:"memory_used"`
	MemoryFree        uint64   `json:"memory_free"`
	Utilization       float64  `json:"utilization"`
	MemoryUtilization float64  `json:"memory_utilization"`
	FanSpeedPercent   *float64 `json:"fan_speed,omitempty"`
}

// GPUMetrics is one reading from the GPU collector, devices ordered by
// index ascending. An empty Devices slice is a valid reading (driver
// present, no devices) and distinct from the collector being unavailable.
type GPUMetrics struct {
	DeviceCount int         `json:"device_count"`
	Devices     []GPUDevice `json:"devices"`
}

// SectionStatus records how a collector fared in the round that built
// the snapshot. Error carries the poll failure cause when State is
// StatusError.
type SectionStatus struct {
	State Status `json:"state"`
	Error string `json:"error,omitempty"`
}

// Snapshot is one immutable point-in-time aggregate across all
// collectors. A section pointer is nil when its collector is
// unavailable or has never produced a reading; Status always carries
// one entry per registered collector.
type Snapshot struct {
	Timestamp time.Time                `json:"timestamp"`
	CPU       *CPUMetrics              `json:"cpu,omitempty"`
	Memory    *MemoryMetrics           `json:"memory,omitempty"`
	GPU       *GPUMetrics              `json:"gpu,omitempty"`
	Status    map[string]SectionStatus `json:"status"`
}
