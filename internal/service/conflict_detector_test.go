package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

func TestOverlaps(t *testing.T) {
	half := func(day models.Weekday, h, m int) models.WeeklySlot {
		start := models.NewTimeOfDay(h, m)
		return models.WeeklySlot{Day: day, Range: models.TimeRange{Start: start, End: start + 60}}
	}
	cases := []struct {
		name string
		a, b models.WeeklySlot
		want bool
	}{
		{name: "identical", a: hourSlot(models.Monday, 9), b: hourSlot(models.Monday, 9), want: true},
		{name: "partial", a: hourSlot(models.Monday, 9), b: half(models.Monday, 9, 30), want: true},
		{name: "adjacent", a: hourSlot(models.Monday, 9), b: hourSlot(models.Monday, 10), want: false},
		{name: "different day", a: hourSlot(models.Monday, 9), b: hourSlot(models.Tuesday, 9), want: false},
		{name: "contained", a: models.WeeklySlot{Day: models.Friday, Range: models.TimeRange{Start: 0, End: models.MinutesPerDay}}, b: hourSlot(models.Friday, 12), want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.a, tc.b))
			assert.Equal(t, tc.want, Overlaps(tc.b, tc.a))
		})
	}
}

func TestConflictDetectorFindsParticipantAndTeacherOccupancy(t *testing.T) {
	detector := detectorOver(
		committedBatch("A", "math", "T", []string{"P"}, hourSlot(models.Monday, 9), hourSlot(models.Wednesday, 9)),
	)

	conflict := detector.CheckAssignment("P", hourSlot(models.Monday, 9), "")
	require.NotNil(t, conflict)
	assert.Equal(t, "A", conflict.Existing.BatchID)
	assert.Equal(t, models.OccupancyRoleParticipant, conflict.Existing.Role)

	conflict = detector.CheckAssignment("T", hourSlot(models.Wednesday, 9), "")
	require.NotNil(t, conflict)
	assert.Equal(t, models.OccupancyRoleTeacher, conflict.Existing.Role)

	assert.Nil(t, detector.CheckAssignment("P", hourSlot(models.Monday, 10), ""))
	assert.Nil(t, detector.CheckAssignment("Q", hourSlot(models.Monday, 9), ""))
}

func TestConflictDetectorExcludesBatchBeingEdited(t *testing.T) {
	detector := detectorOver(committedBatch("A", "math", "T", []string{"P"}, hourSlot(models.Monday, 9)))

	assert.Nil(t, detector.CheckAssignment("P", hourSlot(models.Monday, 9), "A"))
	assert.Nil(t, detector.CheckAssignment("T", hourSlot(models.Monday, 9), "A"))
}

func TestConflictDetectorCheckAllReportsEveryCollision(t *testing.T) {
	detector := detectorOver(
		committedBatch("A", "math", "", []string{"P"}, hourSlot(models.Monday, 9)),
		committedBatch("B", "art", "", []string{"P"}, hourSlot(models.Thursday, 18)),
	)

	conflicts := detector.CheckAll("P", []models.WeeklySlot{hourSlot(models.Monday, 9), hourSlot(models.Tuesday, 9), hourSlot(models.Thursday, 18)}, "")
	require.Len(t, conflicts, 2)
	assert.Equal(t, "A", conflicts[0].Existing.BatchID)
	assert.Equal(t, "B", conflicts[1].Existing.BatchID)
	assert.Equal(t, "P", conflicts[1].ParticipantID)
}

func TestAvailabilityIndexOccupancy(t *testing.T) {
	index := NewAvailabilityIndex(models.BatchSnapshot{Batches: []models.Batch{
		committedBatch("B", "art", "", []string{"P"}, hourSlot(models.Sunday, 8)),
		committedBatch("A", "math", "P", []string{"Q"}, hourSlot(models.Tuesday, 9), hourSlot(models.Monday, 9)),
	}})

	occupancy := index.OccupancyOf("P", "")
	require.Len(t, occupancy, 3)
	assert.Equal(t, models.Monday, occupancy[0].Slot.Day)
	assert.Equal(t, models.OccupancyRoleTeacher, occupancy[0].Role)
	assert.Equal(t, models.Tuesday, occupancy[1].Slot.Day)
	assert.Equal(t, models.Sunday, occupancy[2].Slot.Day)
	assert.Equal(t, models.OccupancyRoleParticipant, occupancy[2].Role)

	occupancy[0].BatchID = "mutated"
	again := index.OccupancyOf("P", "")
	assert.Equal(t, "A", again[0].BatchID)

	assert.Len(t, index.OccupancyOf("P", "A"), 1)
	assert.Empty(t, index.OccupancyOf("", ""))
	assert.False(t, index.IsFree("Q", hourSlot(models.Monday, 9), ""))
	assert.True(t, index.IsFree("Q", hourSlot(models.Monday, 9), "A"))
}

func TestAvailabilityIndexTeacherEnrolledInOwnBatch(t *testing.T) {
	detector := detectorOver(
		committedBatch("A", "math", "P", []string{"P", "Q"}, hourSlot(models.Monday, 9)),
	)

	occupancy := detector.index.OccupancyOf("P", "")
	require.Len(t, occupancy, 2)
	assert.Equal(t, models.OccupancyRoleTeacher, occupancy[0].Role)
	assert.Equal(t, models.OccupancyRoleParticipant, occupancy[1].Role)
	assert.Equal(t, "A", occupancy[1].BatchID)

	conflicts := detector.CheckAll("P", []models.WeeklySlot{hourSlot(models.Monday, 9)}, "")
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.OccupancyRoleTeacher, conflicts[0].Existing.Role)
}

func TestAvailabilityIndexIsolatedFromSnapshotMutation(t *testing.T) {
	batch := committedBatch("A", "math", "", []string{"P"}, hourSlot(models.Monday, 9))
	snapshot := models.BatchSnapshot{Batches: []models.Batch{batch}}
	index := NewAvailabilityIndex(snapshot)

	snapshot.Batches[0].Assignments[0].ParticipantIDs[0] = "Z"

	assert.Len(t, index.OccupancyOf("P", ""), 1)
	stored, ok := index.Batch("A")
	require.True(t, ok)
	assert.Equal(t, []string{"P"}, stored.ParticipantIDs)
	_, ok = index.Batch("missing")
	assert.False(t, ok)
}
