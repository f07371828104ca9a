package dto

import (
	"time"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

// SlotInput is a weekday and time range as typed by a user, optionally in their own timezone.
type SlotInput struct {
	Day   string `json:"day" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// ProjectSlotRequest renders a canonical slot in a display timezone.
type ProjectSlotRequest struct {
	Slot     SlotInput `json:"slot" validate:"required"`
	Timezone string    `json:"timezone"`
}

// CatalogDay lists the offered slots of one weekday.
type CatalogDay struct {
	Day   models.Weekday      `json:"day"`
	Slots []models.Projection `json:"slots"`
}

// CatalogResponse is the slot catalog rendered for the caller.
type CatalogResponse struct {
	Timezone            string       `json:"timezone"`
	SlotDurationMinutes int          `json:"slotDurationMinutes"`
	Days                []CatalogDay `json:"days"`
}

// AvailabilityCheckRequest asks whether a participant can take the given slots.
type AvailabilityCheckRequest struct {
	ParticipantID  string      `json:"participantId" validate:"required"`
	Slots          []SlotInput `json:"slots" validate:"required,min=1,max=2,dive"`
	ExcludeBatchID string      `json:"excludeBatchId"`
	Timezone       string      `json:"timezone"`
}

// AvailabilityCheckResponse reports the canonical slots checked and every collision found.
type AvailabilityCheckResponse struct {
	ParticipantID string                `json:"participantId"`
	Free          bool                  `json:"free"`
	Slots         []models.WeeklySlot   `json:"slots"`
	Conflicts     []models.SlotConflict `json:"conflicts"`
}

// OccupancyItem is an occupied slot with its display projection.
type OccupancyItem struct {
	models.Occupancy
	CourseName string            `json:"courseName,omitempty"`
	Projection models.Projection `json:"projection"`
}

// OccupancyResponse lists a participant's weekly commitments.
type OccupancyResponse struct {
	ParticipantID string          `json:"participantId"`
	Timezone      string          `json:"timezone"`
	Items         []OccupancyItem `json:"items"`
}

// BatchView is a persisted batch with resolved names and projected schedule.
type BatchView struct {
	models.Batch
	CourseName  string              `json:"courseName,omitempty"`
	TeacherName string              `json:"teacherName,omitempty"`
	Schedule    []models.Projection `json:"schedule"`
}

// StartDraftRequest opens an edit session for a new batch, or for an existing one when BatchID is set.
type StartDraftRequest struct {
	BatchID                  string  `json:"batchId"`
	CourseID                 string  `json:"courseId" validate:"required_without=BatchID"`
	TeacherID                *string `json:"teacherId"`
	Mode                     string  `json:"mode" validate:"omitempty,oneof=ONLINE OFFLINE"`
	LocationID               *string `json:"locationId"`
	AllowParticipantConflict bool    `json:"allowParticipantConflict"`
}

// SelectDayRequest adds a weekday to the draft.
type SelectDayRequest struct {
	Day string `json:"day" validate:"required"`
}

// SelectSlotRequest chooses the time for a selected weekday. Times are in Timezone when given.
type SelectSlotRequest struct {
	Start    string `json:"start" validate:"required"`
	End      string `json:"end" validate:"required"`
	Timezone string `json:"timezone"`
}

// SetTeacherRequest assigns the batch teacher; an empty id clears it.
type SetTeacherRequest struct {
	TeacherID string `json:"teacherId"`
}

// AssignParticipantsRequest enrols participants. OnlyAvailable enrols the conflict-free subset.
type AssignParticipantsRequest struct {
	ParticipantIDs []string `json:"participantIds" validate:"required,min=1,dive,required"`
	AllowConflict  *bool    `json:"allowConflict"`
	OnlyAvailable  bool     `json:"onlyAvailable"`
}

// ParticipantAvailabilityRequest lists candidates to evaluate against the draft.
type ParticipantAvailabilityRequest struct {
	ParticipantIDs []string `json:"participantIds" validate:"required,min=1,dive,required"`
}

// DraftDay is a chosen weekday with its slot and display projection.
type DraftDay struct {
	Day        models.Weekday     `json:"day"`
	Range      *models.TimeRange  `json:"range,omitempty"`
	Projection *models.Projection `json:"projection,omitempty"`
}

// DraftView is the client-facing state of an edit session.
type DraftView struct {
	ID                       string                `json:"id"`
	State                    models.AssemblerState `json:"state"`
	DayCount                 int                   `json:"dayCount"`
	BaseVersion              int                   `json:"baseVersion"`
	AllowParticipantConflict bool                  `json:"allowParticipantConflict"`
	Batch                    models.Batch          `json:"batch"`
	Days                     []DraftDay            `json:"days"`
	ExpiresAt                time.Time             `json:"expiresAt"`
}

// AssignParticipantsResponse reports the enrolment outcome.
type AssignParticipantsResponse struct {
	Draft    DraftView                        `json:"draft"`
	Added    []string                         `json:"added"`
	Skipped  []models.ParticipantAvailability `json:"skipped,omitempty"`
	Warnings []models.SlotConflict            `json:"warnings,omitempty"`
}

// PreferenceSlotsRequest replaces a participant's timing preferences for one course.
type PreferenceSlotsRequest struct {
	Timezone string      `json:"timezone"`
	Slots    []SlotInput `json:"slots" validate:"dive"`
}

// PreferenceView is a stored preference with its projection into the requested timezone.
type PreferenceView struct {
	models.CourseTimingPreference
	CourseName string            `json:"courseName,omitempty"`
	Projection models.Projection `json:"projection"`
}
