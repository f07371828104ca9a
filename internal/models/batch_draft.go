package models

import "time"

// AssemblerState is the lifecycle phase of a batch being edited.
type AssemblerState string

const (
	StateEmpty                AssemblerState = "EMPTY"
	StateDaysChosen           AssemblerState = "DAYS_CHOSEN"
	StateSlotsAssigned        AssemblerState = "SLOTS_ASSIGNED"
	StateParticipantsAssigned AssemblerState = "PARTICIPANTS_ASSIGNED"
	StateCommitted            AssemblerState = "COMMITTED"
)

// DayChoice is a weekday picked for a batch, with its slot once one is selected.
type DayChoice struct {
	Day   Weekday    `json:"day"`
	Range *TimeRange `json:"range,omitempty"`
}

// BatchDraft is an edit session persisted between requests.
type BatchDraft struct {
	ID                       string      `json:"id"`
	BaseVersion              int         `json:"base_version"`
	Batch                    Batch       `json:"batch"`
	Days                     []DayChoice `json:"days"`
	AllowParticipantConflict bool        `json:"allow_participant_conflict"`
	Committed                bool        `json:"committed"`
	CreatedBy                string      `json:"created_by,omitempty"`
	CreatedAt                time.Time   `json:"created_at"`
	ExpiresAt                time.Time   `json:"expires_at"`
}

// ParticipantAvailability flags whether a candidate can join a batch without double-booking.
type ParticipantAvailability struct {
	ParticipantID string         `json:"participant_id"`
	Name          string         `json:"name,omitempty"`
	HasConflict   bool           `json:"has_conflict"`
	Conflicts     []SlotConflict `json:"conflicts,omitempty"`
}
