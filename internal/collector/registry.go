// Collector registry and round coordinator. Collectors are registered in
// a fixed, caller-chosen order at startup; every round fans out one
// goroutine per available collector, applies a uniform per-collector
// timeout, and joins the settled results into a single immutable Snapshot.
package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hostpulse/agent/internal/models"
)

// DefaultPollTimeout bounds a single collector poll when no explicit
// timeout is configured.
const DefaultPollTimeout = 5 * time.Second

// errPollTimeout is the fixed cause recorded when a poll exceeds the
// per-collector timeout. Treated like any other transient failure.
var errPollTimeout = errors.New("poll timed out")

// entry tracks one registered collector together with its permanent
// availability and the last payload it delivered successfully.
type entry struct {
	collector Collector
	available bool

	mu       sync.Mutex
	lastGood any
}

// Registry owns the set of collectors and runs collection rounds.
// Registration happens once at startup; after that the registry is
// read-only and rounds may run concurrently.
type Registry struct {
	logger  *zap.Logger
	timeout time.Duration
	entries []*entry
}

// NewRegistry creates a registry. timeout bounds each collector's poll;
// zero or negative selects DefaultPollTimeout.
func NewRegistry(logger *zap.Logger, timeout time.Duration) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &Registry{logger: logger, timeout: timeout}
}

// Register probes a collector and adds it to the registry. A failed
// probe keeps the collector listed as permanently unavailable, so its
// status still appears in snapshots, but it is never polled again.
func (r *Registry) Register(c Collector) {
	e := &entry{collector: c}
	if err := c.Probe(); err != nil {
		r.logger.Warn("Collector unavailable",
			zap.String("collector", c.Name()),
			zap.Error(err))
	} else {
		e.available = true
		r.logger.Info("Registered collector", zap.String("collector", c.Name()))
	}
	r.entries = append(r.entries, e)
}

// Names returns the collector names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.collector.Name()
	}
	return names
}

// Healthy reports whether at least one collector is available. Consumed
// by the health endpoint as the liveness signal.
func (r *Registry) Healthy() bool {
	for _, e := range r.entries {
		if e.available {
			return true
		}
	}
	return false
}

// pollResult is the settled outcome of one dispatched poll.
type pollResult struct {
	payload any
	err     error
}

// Collect runs one collection round: concurrent fan-out to every
// available collector, a per-collector timeout, and a barrier that waits
// for each dispatched poll to settle before the Snapshot is assembled
// with a single timestamp. Individual failures become status fields;
// the only hard error is an empty registry.
func (r *Registry) Collect(ctx context.Context) (*models.Snapshot, error) {
	if len(r.entries) == 0 {
		return nil, ErrNoCollectors
	}

	type settled struct {
		entry  *entry
		result pollResult
	}

	results := make([]settled, 0, len(r.entries))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, e := range r.entries {
		if !e.available {
			continue
		}
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			res := r.poll(ctx, e.collector)
			mu.Lock()
			results = append(results, settled{entry: e, result: res})
			mu.Unlock()
		}(e)
	}
	wg.Wait()

	snap := &models.Snapshot{
		Timestamp: time.Now().UTC(),
		Status:    make(map[string]models.SectionStatus, len(r.entries)),
	}
	for _, e := range r.entries {
		if !e.available {
			snap.Status[e.collector.Name()] = models.SectionStatus{State: models.StatusUnavailable}
		}
	}
	for _, s := range results {
		r.apply(snap, s.entry, s.result)
	}
	return snap, nil
}

// poll runs one collector bounded by the registry's timeout. The poll
// goroutine writes into a buffered channel, so a result arriving after
// the deadline is dropped instead of blocking the abandoned goroutine;
// the round never uses a result that settled after its timeout.
func (r *Registry) poll(ctx context.Context, c Collector) pollResult {
	pollCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := make(chan pollResult, 1)
	go func() {
		payload, err := c.Collect(pollCtx)
		ch <- pollResult{payload: payload, err: err}
	}()

	select {
	case res := <-ch:
		return res
	case <-pollCtx.Done():
		if err := ctx.Err(); err != nil {
			// Process shutdown, not a slow collector.
			return pollResult{err: err}
		}
		return pollResult{err: errPollTimeout}
	}
}

// apply folds one settled poll into the snapshot. A failed poll re-emits
// the collector's last successful payload, if any, with the failure
// cause attached; without a prior success the section stays absent.
func (r *Registry) apply(snap *models.Snapshot, e *entry, res pollResult) {
	name := e.collector.Name()

	payload := res.payload
	status := models.SectionStatus{State: models.StatusOK}
	if res.err != nil {
		r.logger.Error("Collection failed",
			zap.String("collector", name),
			zap.Error(res.err))
		status = models.SectionStatus{State: models.StatusError, Error: res.err.Error()}
		e.mu.Lock()
		payload = e.lastGood
		e.mu.Unlock()
	} else {
		e.mu.Lock()
		e.lastGood = payload
		e.mu.Unlock()
	}
	snap.Status[name] = status

	switch m := payload.(type) {
	case *models.CPUMetrics:
		snap.CPU = m
	case *models.MemoryMetrics:
		snap.Memory = m
	case *models.GPUMetrics:
		snap.GPU = m
	case nil:
		// No payload and no last known good: the section stays absent.
	default:
		r.logger.Warn("Dropping payload of unknown type",
			zap.String("collector", name))
	}
}
