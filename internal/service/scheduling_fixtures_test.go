package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

// Monday 2025-01-06 12:00 UTC, outside every DST transition of the zones under test.
var fixedSchedulingClock = func() time.Time { return time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC) }

func hourSlot(day models.Weekday, hour int) models.WeeklySlot {
	return models.WeeklySlot{Day: day, Range: models.TimeRange{Start: models.NewTimeOfDay(hour, 0), End: models.NewTimeOfDay(hour+1, 0)}}
}

func hourRange(hour int) models.TimeRange {
	return hourSlot(models.Monday, hour).Range
}

func newTestProjector(t *testing.T) *TimezoneProjector {
	t.Helper()
	projector, err := NewTimezoneProjector("Asia/Kolkata", "IST", fixedSchedulingClock)
	require.NoError(t, err)
	return projector
}

func newTestCatalog(t *testing.T) *SlotCatalog {
	t.Helper()
	catalog, err := NewSlotCatalog(SlotCatalogConfig{
		FirstStart: "07:00",
		LastEnd:    "22:00",
		Duration:   time.Hour,
		Days:       []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"},
	})
	require.NoError(t, err)
	return catalog
}

func committedBatch(id, courseID, teacherID string, participants []string, slots ...models.WeeklySlot) models.Batch {
	batch := models.Batch{ID: id, CourseID: courseID, Mode: models.BatchModeOnline, Version: 1, ParticipantIDs: participants}
	if teacherID != "" {
		teacher := teacherID
		batch.TeacherID = &teacher
	}
	for _, slot := range slots {
		batch.Assignments = append(batch.Assignments, models.ScheduleAssignment{
			BatchID:        id,
			Slot:           slot,
			ParticipantIDs: append([]string(nil), participants...),
		})
	}
	return batch
}

func detectorOver(batches ...models.Batch) *ConflictDetector {
	return NewConflictDetector(NewAvailabilityIndex(models.BatchSnapshot{Batches: batches}))
}

func requireSchedulingKind(t *testing.T, err error, kind models.SchedulingErrorKind) *models.SchedulingError {
	t.Helper()
	require.Error(t, err)
	schedErr, ok := asSchedulingError(err)
	require.True(t, ok, "expected scheduling error, got %T: %v", err, err)
	require.Equal(t, kind, schedErr.Kind)
	return schedErr
}
