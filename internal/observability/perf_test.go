package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RecordAggregates(t *testing.T) {
	r := NewRecorder()
	r.Record("detail.fetch", 10*time.Millisecond)
	r.Record("detail.fetch", 30*time.Millisecond)
	r.Record("detail.fetch", 20*time.Millisecond)

	stats := r.Snapshot()
	st, ok := stats["detail.fetch"]
	require.True(t, ok)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 60*time.Millisecond, st.Total)
	assert.Equal(t, 10*time.Millisecond, st.Min)
	assert.Equal(t, 30*time.Millisecond, st.Max)
	assert.Equal(t, 20*time.Millisecond, st.Avg())
}

func TestRecorder_Start(t *testing.T) {
	r := NewRecorder()
	stop := r.Start("ai.classify")
	stop()

	stats := r.Snapshot()
	st, ok := stats["ai.classify"]
	require.True(t, ok)
	assert.Equal(t, 1, st.Count)
}

func TestRecorder_SnapshotIsCopy(t *testing.T) {
	r := NewRecorder()
	r.Record("db.upsert", time.Millisecond)

	snap := r.Snapshot()
	st := snap["db.upsert"]
	st.Count = 99

	assert.Equal(t, 1, r.Snapshot()["db.upsert"].Count)
}

func TestWriteSummary_Empty(t *testing.T) {
	r := NewRecorder()
	var sb strings.Builder
	r.WriteSummary(&sb)
	assert.Contains(t, sb.String(), "(no samples)")
}

func TestWriteSummary_SortedLabels(t *testing.T) {
	r := NewRecorder()
	r.Record("db.upsert", 5*time.Millisecond)
	r.Record("ai.classify", 25*time.Millisecond)

	var sb strings.Builder
	r.WriteSummary(&sb)
	out := sb.String()

	assert.Contains(t, out, "ai.classify")
	assert.Contains(t, out, "db.upsert")
	assert.Less(t, strings.Index(out, "ai.classify"), strings.Index(out, "db.upsert"))
}

func TestPrintRunSummary(t *testing.T) {
	var sb strings.Builder
	p := NewPrinter(&sb)
	p.PrintRunSummary(&RunSummary{
		Processed:     120,
		Updated:       110,
		Skipped:       7,
		Failed:        3,
		FallbackCalls: 42,
	})
	out := sb.String()
	assert.Contains(t, out, "RUN SUMMARY")
	assert.Contains(t, out, "Processed:  120")
	assert.Contains(t, out, "Failed:     3")
	assert.Contains(t, out, "AI fallback calls: 42")
}

func TestPrintHealthCheck(t *testing.T) {
	var sb strings.Builder
	p := NewPrinter(&sb)
	p.PrintHealthCheck(true, 1200, 0.05, "auctions@db:5432")
	out := sb.String()
	assert.Contains(t, out, "STARTUP HEALTH CHECK")
	assert.Contains(t, out, "1200 req/min")
	assert.Contains(t, out, "auctions@db:5432")
}
