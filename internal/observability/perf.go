// Package observability provides run-scoped performance statistics and
// formatted summary output for the ingest CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// PerfStat aggregates durations recorded under one label.
type PerfStat struct {
	Count int
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Avg returns the mean recorded duration, or 0 when nothing was recorded.
func (s PerfStat) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Recorder collects per-label latency statistics for one run. A Recorder is
// owned by the run that created it; repeated runs construct fresh recorders
// rather than sharing process-global state.
type Recorder struct {
	mu    sync.Mutex
	stats map[string]*PerfStat
}

// NewRecorder returns an empty run-scoped recorder.
func NewRecorder() *Recorder {
	return &Recorder{stats: make(map[string]*PerfStat)}
}

// Record adds one duration sample under label.
func (r *Recorder) Record(label string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stats[label]
	if !ok {
		st = &PerfStat{Min: d, Max: d}
		r.stats[label] = st
	}
	st.Count++
	st.Total += d
	if d > st.Max {
		st.Max = d
	}
	if d < st.Min {
		st.Min = d
	}
}

// Start begins timing a phase; the returned func records the elapsed time
// under label when called. Intended for use with defer.
func (r *Recorder) Start(label string) func() {
	t0 := time.Now()
	return func() { r.Record(label, time.Since(t0)) }
}

// Snapshot returns a copy of the collected statistics keyed by label.
func (r *Recorder) Snapshot() map[string]PerfStat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]PerfStat, len(r.stats))
	for label, st := range r.stats {
		out[label] = *st
	}
	return out
}

// WriteSummary prints the per-label statistics sorted by label.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (r *Recorder) WriteSummary(w io.Writer) {
	stats := r.Snapshot()
	if len(stats) == 0 {
		fmt.Fprintln(w, "=== Perf Summary ===\n(no samples)\n====================")
		return
	}

	labels := make([]string, 0, len(stats))
	for label := range stats {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Fprintln(w, "=== Perf Summary ===")
	for _, label := range labels {
		st := stats[label]
		fmt.Fprintf(w, "%-28s n=%5d avg=%.1fms min=%.1fms max=%.1fms\n",
			label, st.Count, ms(st.Avg()), ms(st.Min), ms(st.Max))
	}
	fmt.Fprintln(w, "====================")
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
