package audit

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"medication-schedule/internal/platform/logger"
	ports "medication-schedule/internal/ports/audit"
)

func TestRecordOverrideLogsAndKeepsEntry(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogRecorder(logger.New(logger.Options{Level: logger.Info, Format: logger.FormatJSON, Out: &buf}))

	err := r.RecordOverride(context.Background(), ports.OverrideEntry{
		ResolutionID: "res-1",
		PatientID:    "p1",
		MedicationID: "ibuprofen",
		ActorID:      "dr-1",
		Conflicts:    []string{"too_close:aspirin"},
		At:           time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if !strings.Contains(buf.String(), `"resolution_id":"res-1"`) {
		t.Fatalf("expected structured log line, got %q", buf.String())
	}
	if got := r.Entries(); len(got) != 1 || got[0].ActorID != "dr-1" {
		t.Fatalf("expected one entry, got %+v", got)
	}
}

func TestRecordOverrideRequiresActor(t *testing.T) {
	r := NewLogRecorder(nil)
	if err := r.RecordOverride(context.Background(), ports.OverrideEntry{ResolutionID: "x"}); err == nil {
		t.Fatalf("expected error without actor")
	}
}
