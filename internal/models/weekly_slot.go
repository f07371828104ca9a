package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay bounds every canonical time of day.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" in 24h form. "24:00" is accepted and only valid as a range end.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("time %q must be HH:MM", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("time %q has invalid hours", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("time %q has invalid minutes", raw)
	}
	if hours < 0 || hours > 24 || minutes < 0 || minutes > 59 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return TimeOfDay(hours*60 + minutes), nil
}

// NewTimeOfDay builds a time of day from hours and minutes.
func NewTimeOfDay(hours, minutes int) TimeOfDay {
	return TimeOfDay(hours*60 + minutes)
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText renders HH:MM.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	if t < 0 || t > MinutesPerDay {
		return nil, fmt.Errorf("invalid time of day %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText parses HH:MM.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeRange is a start/end pair within a single canonical day.
type TimeRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// NewTimeRange validates and builds a range.
func NewTimeRange(start, end TimeOfDay) (TimeRange, error) {
	r := TimeRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

// ParseTimeRange parses start and end HH:MM values.
func ParseTimeRange(start, end string) (TimeRange, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return TimeRange{}, err
	}
	return NewTimeRange(s, e)
}

// Validate enforces end > start and that the range stays inside one day.
func (r TimeRange) Validate() error {
	if r.Start < 0 || r.Start >= MinutesPerDay {
		return fmt.Errorf("start %s out of range", r.Start)
	}
	if r.End > MinutesPerDay {
		return fmt.Errorf("end %s out of range", r.End)
	}
	if r.End <= r.Start {
		return fmt.Errorf("end %s must be after start %s", r.End, r.Start)
	}
	return nil
}

// Duration returns the length in minutes.
func (r TimeRange) Duration() int {
	return int(r.End - r.Start)
}

func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// WeeklySlot is the unit of scheduling: a recurring canonical weekday and time range.
// It is comparable, so == is structural equality.
type WeeklySlot struct {
	Day   Weekday   `json:"day"`
	Range TimeRange `json:"range"`
}

// Validate checks both components.
func (s WeeklySlot) Validate() error {
	if !s.Day.Valid() {
		return fmt.Errorf("invalid weekday %d", int(s.Day))
	}
	return s.Range.Validate()
}

func (s WeeklySlot) String() string {
	return s.Day.String() + " " + s.Range.String()
}
