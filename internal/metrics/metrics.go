package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Metric is a single named counter with optional labels.
type Metric struct {
	Name       string            `json:"name"`
	Value      float64           `json:"value"`
	Labels     map[string]string `json:"labels,omitempty"`
	LastUpdate time.Time         `json:"last_update"`
}

// TimerMetric aggregates request timings in milliseconds.
type TimerMetric struct {
	Count   int64   `json:"count"`
	Sum     float64 `json:"sum_ms"`
	Min     float64 `json:"min_ms"`
	Max     float64 `json:"max_ms"`
	Average float64 `json:"avg_ms"`
}

// Registry manages all metrics in memory. The admin console reads it through
// the /metrics endpoint; nothing is exported off-process.
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]*Metric
	timers    map[string]*TimerMetric
	startTime time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Metric),
		timers:    make(map[string]*TimerMetric),
		startTime: time.Now(),
	}
}

var defaultRegistry = NewRegistry()

// GetRegistry returns the process-wide registry.
func GetRegistry() *Registry {
	return defaultRegistry
}

func (r *Registry) IncrementCounter(name string, labels map[string]string) {
	r.AddToCounter(name, 1, labels)
}

func (r *Registry) AddToCounter(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	m, ok := r.counters[key]
	if !ok {
		m = &Metric{Name: name, Labels: copyLabels(labels)}
		r.counters[key] = m
	}
	m.Value += value
	m.LastUpdate = time.Now()
}

func (r *Registry) RecordTimer(name string, duration time.Duration, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	ms := float64(duration.Microseconds()) / 1000.0

	tm, ok := r.timers[key]
	if !ok {
		tm = &TimerMetric{Min: ms, Max: ms}
		r.timers[key] = tm
	}
	tm.Count++
	tm.Sum += ms
	if ms < tm.Min {
		tm.Min = ms
	}
	if ms > tm.Max {
		tm.Max = ms
	}
	tm.Average = tm.Sum / float64(tm.Count)
}

// Snapshot returns all metrics for serving on the metrics endpoint.
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make(map[string]*Metric, len(r.counters))
	for k, v := range r.counters {
		copied := *v
		counters[k] = &copied
	}
	timers := make(map[string]*TimerMetric, len(r.timers))
	for k, v := range r.timers {
		copied := *v
		timers[k] = &copied
	}

	return map[string]interface{}{
		"counters":       counters,
		"timers":         timers,
		"uptime_seconds": time.Since(r.startTime).Seconds(),
	}
}

func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := name
	for _, k := range keys {
		key += fmt.Sprintf(",%s=%s", k, labels[k])
	}
	return key
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	return copied
}

// Package-level helpers against the default registry.

func IncrementCounter(name string, labels map[string]string) {
	defaultRegistry.IncrementCounter(name, labels)
}

func RecordTimer(name string, duration time.Duration, labels map[string]string) {
	defaultRegistry.RecordTimer(name, duration, labels)
}

func Snapshot() map[string]interface{} {
	return defaultRegistry.Snapshot()
}
