//go:build !linux

package collector

// freqLimits reports no scaling limits where sysfs cpufreq does not exist.
func freqLimits() (minMHz, maxMHz float64) {
	return 0, 0
}
