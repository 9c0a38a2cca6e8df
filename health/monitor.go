package health

import (
	"sort"
	"sync"
	"time"
)

// UnhealthyAfter is the number of consecutive failures after which a
// vendor is reported unhealthy rather than degraded.
const UnhealthyAfter = 3

// Observer is notified after every status change
type Observer func(name string, status Status)

// Monitor tracks vendor health in a thread-safe manner. Stats and status
// for a name change together under one lock, and the observer sees each
// name's statuses in the order they were stored.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	stats    map[string]*Stats
	observer Observer
	seq      uint64

	notifyMu sync.Mutex
	notified map[string]uint64
}

// NewMonitor creates a new health monitor. names are registered as
// healthy until their first call.
func NewMonitor(names ...string) *Monitor {
	m := &Monitor{
		statuses: make(map[string]Status),
		stats:    make(map[string]*Stats),
		notified: make(map[string]uint64),
	}
	for _, name := range names {
		m.statuses[name] = NewHealthy(name, "No vendor calls yet")
		m.stats[name] = &Stats{}
	}
	return m
}

// SetObserver installs fn to be called after each update
func (m *Monitor) SetObserver(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// Update updates the health status for a named vendor
func (m *Monitor) Update(name string, status Status) {
	m.record(name, func(*Stats) Status { return status })
}

// RecordSuccess marks a successful call
func (m *Monitor) RecordSuccess(name string) {
	m.record(name, func(st *Stats) Status {
		st.Successes++
		st.ConsecutiveFailures = 0
		st.LastSuccess = time.Now()
		return NewHealthy(name, "Last call succeeded")
	})
}

// RecordDegraded marks a call that reached the vendor but returned data
// that could not be used
func (m *Monitor) RecordDegraded(name, message string) {
	m.record(name, func(st *Stats) Status {
		st.Failures++
		st.LastFailure = time.Now()
		return NewDegraded(name, message)
	})
}

// RecordFailure marks a failed call. The vendor turns unhealthy after
// UnhealthyAfter consecutive failures and is degraded before that.
func (m *Monitor) RecordFailure(name, message string) {
	m.record(name, func(st *Stats) Status {
		st.Failures++
		st.ConsecutiveFailures++
		st.LastFailure = time.Now()
		if st.ConsecutiveFailures >= UnhealthyAfter {
			return NewUnhealthy(name, message)
		}
		return NewDegraded(name, message)
	})
}

// record applies change to name's stats and stores the status it returns
// in one critical section, then notifies the observer.
func (m *Monitor) record(name string, change func(st *Stats) Status) {
	m.mu.Lock()
	st := m.statsFor(name)
	status := change(st)
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	status.Message = sanitizeErrorMessage(status.Message)
	status = status.WithStats(*st)
	m.statuses[name] = status
	m.seq++
	seq := m.seq
	observer := m.observer
	m.mu.Unlock()

	if observer != nil {
		m.notify(observer, name, status, seq)
	}
}

// notify drops a status that was overtaken by a newer one for the same
// name. notifyMu is never held while taking mu.
func (m *Monitor) notify(observer Observer, name string, status Status, seq uint64) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if seq < m.notified[name] {
		return
	}
	m.notified[name] = seq
	observer(name, status)
}

// statsFor must be called with mu held
func (m *Monitor) statsFor(name string) *Stats {
	st, ok := m.stats[name]
	if !ok {
		st = &Stats{}
		m.stats[name] = st
	}
	return st
}

// Get retrieves the health status for a named vendor
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, exists := m.statuses[name]
	return status, exists
}

// GetAll returns a copy of all current health statuses
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Status, len(m.statuses))
	for name, status := range m.statuses {
		result[name] = status
	}
	return result
}

// AggregateHealth returns an aggregated health status for the gateway
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subStatuses := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subStatuses = append(subStatuses, status)
	}

	return Aggregate(systemName, subStatuses)
}

// ListComponents returns the monitored names in sorted order
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.statuses))
	for name := range m.statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
