package models

import (
	"errors"
	"time"
)

// BatchMode describes where a batch meets.
type BatchMode string

const (
	BatchModeOnline  BatchMode = "ONLINE"
	BatchModeOffline BatchMode = "OFFLINE"
)

// ErrBatchVersionConflict is returned by persistence when a batch changed after it was read.
var ErrBatchVersionConflict = errors.New("batch version conflict")

// ErrCorruptBatch is returned when stored assignments break the weekly slot rules.
var ErrCorruptBatch = errors.New("corrupt batch record")

// MaxWeeklySlots is the two-classes-per-week policy for every batch.
const MaxWeeklySlots = 2

// ScheduleAssignment records that a batch meets at a weekly slot with the given participants.
type ScheduleAssignment struct {
	BatchID        string     `json:"batch_id"`
	Slot           WeeklySlot `json:"slot"`
	ParticipantIDs []string   `json:"participant_ids"`
}

// Batch is a recurring class grouping for a course.
type Batch struct {
	ID             string               `db:"id" json:"id"`
	CourseID       string               `db:"course_id" json:"course_id"`
	TeacherID      *string              `db:"teacher_id" json:"teacher_id,omitempty"`
	Mode           BatchMode            `db:"mode" json:"mode"`
	LocationID     *string              `db:"location_id" json:"location_id,omitempty"`
	Version        int                  `db:"version" json:"version"`
	Assignments    []ScheduleAssignment `db:"-" json:"assignments"`
	ParticipantIDs []string             `db:"-" json:"participant_ids"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}

// Teacher returns the teacher id or an empty string.
func (b Batch) Teacher() string {
	if b.TeacherID == nil {
		return ""
	}
	return *b.TeacherID
}

// Slots returns the weekly slots of the batch in assignment order.
func (b Batch) Slots() []WeeklySlot {
	slots := make([]WeeklySlot, 0, len(b.Assignments))
	for _, a := range b.Assignments {
		slots = append(slots, a.Slot)
	}
	return slots
}

// Clone returns a deep copy so drafts never alias snapshot data.
func (b Batch) Clone() Batch {
	cp := b
	if b.TeacherID != nil {
		id := *b.TeacherID
		cp.TeacherID = &id
	}
	if b.LocationID != nil {
		id := *b.LocationID
		cp.LocationID = &id
	}
	cp.ParticipantIDs = append([]string(nil), b.ParticipantIDs...)
	cp.Assignments = make([]ScheduleAssignment, len(b.Assignments))
	for i, a := range b.Assignments {
		cp.Assignments[i] = ScheduleAssignment{
			BatchID:        a.BatchID,
			Slot:           a.Slot,
			ParticipantIDs: append([]string(nil), a.ParticipantIDs...),
		}
	}
	return cp
}

// BatchAssignmentRow is the persisted form of a schedule assignment.
type BatchAssignmentRow struct {
	BatchID     string `db:"batch_id"`
	DayOfWeek   int    `db:"day_of_week"`
	StartMinute int    `db:"start_minute"`
	EndMinute   int    `db:"end_minute"`
}

// BatchParticipantRow is the persisted form of an enrolment.
type BatchParticipantRow struct {
	BatchID       string `db:"batch_id"`
	ParticipantID string `db:"participant_id"`
}

// BatchSnapshot is an immutable view of every persisted batch used for one conflict check.
type BatchSnapshot struct {
	Batches []Batch
	TakenAt time.Time
}

// OccupancyRole distinguishes teaching from attending.
type OccupancyRole string

const (
	OccupancyRoleTeacher     OccupancyRole = "TEACHER"
	OccupancyRoleParticipant OccupancyRole = "PARTICIPANT"
)

// Occupancy is a slot a participant holds in some batch. Derived, never stored.
type Occupancy struct {
	Slot     WeeklySlot    `json:"slot"`
	BatchID  string        `json:"batch_id"`
	CourseID string        `json:"course_id"`
	Role     OccupancyRole `json:"role"`
}
