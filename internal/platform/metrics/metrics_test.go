package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"medication-schedule/internal/domain/conflicts"
)

func TestCheckCompletedCountsConflictsAndFailures(t *testing.T) {
	m := New()

	m.CheckCompleted(3*time.Millisecond, conflicts.Report{
		Conflicts: []conflicts.Conflict{
			{Type: conflicts.TypeOverlap, Severity: conflicts.SeverityHigh},
			{Type: conflicts.TypeTooClose, Severity: conflicts.SeverityMedium},
			{Type: conflicts.TypeTooClose, Severity: conflicts.SeverityMedium},
		},
		Warnings: []conflicts.Warning{{Code: conflicts.WarningOracleUnavailable}},
	})
	m.CheckCompleted(time.Millisecond, conflicts.Report{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues("conflicts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues("clear")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.conflicts.WithLabelValues("too_close", "medium")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleFailures))
}

func TestObserveHTTP(t *testing.T) {
	m := New()

	m.ObserveHTTP("/schedules/{scheduleID}", "GET", 200, 10*time.Millisecond)
	m.ObserveHTTP("", "GET", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/schedules/{scheduleID}", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "GET", "404")))
}
