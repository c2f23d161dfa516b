//go:build linux

package collector

import "github.com/prometheus/procfs/sysfs"

// freqLimits reads the cpufreq scaling limits from sysfs. The kernel
// reports them in kHz; zeros mean the platform does not expose them.
func freqLimits() (minMHz, maxMHz float64) {
	fs, err := sysfs.NewDefaultFS()
	if err != nil {
		return 0, 0
	}
	stats, err := fs.SystemCpufreq()
	if err != nil || len(stats) == 0 {
		return 0, 0
	}
	if v := stats[0].CpuinfoMinimumFrequency; v != nil {
		minMHz = float64(*v) / 1000.0
	}
	if v := stats[0].CpuinfoMaximumFrequency; v != nil {
		maxMHz = float64(*v) / 1000.0
	}
	return minMHz, maxMHz
}
