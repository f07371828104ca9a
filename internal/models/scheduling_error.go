package models

// SchedulingErrorKind enumerates rejection reasons produced by the scheduling engine.
type SchedulingErrorKind string

const (
	KindInvalidSlot         SchedulingErrorKind = "INVALID_SLOT"
	KindTeacherConflict     SchedulingErrorKind = "TEACHER_CONFLICT"
	KindParticipantConflict SchedulingErrorKind = "PARTICIPANT_CONFLICT"
	KindCapacityExceeded    SchedulingErrorKind = "CAPACITY_EXCEEDED"
	KindIncompleteSchedule  SchedulingErrorKind = "INCOMPLETE_SCHEDULE"
	KindUnknownTimezone     SchedulingErrorKind = "UNKNOWN_TIMEZONE"
	KindInvalidBatch        SchedulingErrorKind = "INVALID_BATCH"
)

// SlotConflict describes an existing occupancy that collides with a proposed slot.
type SlotConflict struct {
	ParticipantID string     `json:"participant_id"`
	Proposed      WeeklySlot `json:"proposed"`
	Existing      Occupancy  `json:"existing"`
}

// SchedulingError is a typed engine rejection. Engine state is unchanged when one is returned.
type SchedulingError struct {
	Kind      SchedulingErrorKind `json:"kind"`
	Message   string              `json:"message"`
	Slot      *WeeklySlot         `json:"slot,omitempty"`
	Conflicts []SlotConflict      `json:"conflicts,omitempty"`
}

// Error implements the error interface.
func (e *SchedulingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// NewSchedulingError builds a rejection without conflict detail.
func NewSchedulingError(kind SchedulingErrorKind, message string) *SchedulingError {
	return &SchedulingError{Kind: kind, Message: message}
}
