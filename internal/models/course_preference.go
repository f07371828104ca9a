package models

import "time"

// MaxPreferencesPerCourse caps timing preferences per participant-course pair.
const MaxPreferencesPerCourse = 2

// CourseTimingPreference is a participant's desired weekly slot for a course. Slot is canonical;
// the display fields cache its projection into the participant's timezone at save time.
type CourseTimingPreference struct {
	ID              string     `db:"id" json:"id"`
	ParticipantID   string     `db:"participant_id" json:"participant_id"`
	CourseID        string     `db:"course_id" json:"course_id"`
	Slot            WeeklySlot `db:"-" json:"slot"`
	DayOfWeek       int        `db:"day_of_week" json:"-"`
	StartMinute     int        `db:"start_minute" json:"-"`
	EndMinute       int        `db:"end_minute" json:"-"`
	DisplayTimezone string     `db:"display_timezone" json:"display_timezone"`
	DisplayLabel    string     `db:"display_label" json:"display_label"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// SyncColumns copies Slot into the flat persisted columns.
func (p *CourseTimingPreference) SyncColumns() {
	p.DayOfWeek = int(p.Slot.Day)
	p.StartMinute = int(p.Slot.Range.Start)
	p.EndMinute = int(p.Slot.Range.End)
}

// LoadSlot rebuilds Slot from the persisted columns.
func (p *CourseTimingPreference) LoadSlot() {
	p.Slot = WeeklySlot{
		Day:   Weekday(p.DayOfWeek),
		Range: TimeRange{Start: TimeOfDay(p.StartMinute), End: TimeOfDay(p.EndMinute)},
	}
}
