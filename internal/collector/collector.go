// Package collector defines the Collector contract, the concrete CPU,
// memory, and GPU collectors, and the Registry that fans polls out
// concurrently and assembles Snapshots.
package collector

import (
	"context"
	"errors"
)

// ErrUnavailable is wrapped by Probe errors when the underlying hardware
// or driver does not exist on this host. The condition is permanent for
// the process lifetime.
var ErrUnavailable = errors.New("collector unavailable")

// ErrNoCollectors is returned by Registry.Collect when nothing has been
// registered. It is the one failure the coordinator surfaces to its
// caller; everything else becomes status data in the Snapshot.
var ErrNoCollectors = errors.New("no telemetry sources configured")

// Collector is the contract every hardware source implements.
type Collector interface {
	// Name returns the stable identifier used in logs, metric labels,
	// and JSON section names. It never changes after construction.
	Name() string

	// Probe checks once, at registration time, whether this source can
	// work on the current host. A non-nil error marks the collector
	// permanently unavailable; it will never be polled.
	Probe() error

	// Collect performs one poll and returns a typed metrics record.
	// An error counts against this round only; the registry retries on
	// the next round. Implementations must respect ctx cancellation.
	Collect(ctx context.Context) (any, error)
}
