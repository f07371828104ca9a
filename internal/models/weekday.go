package models

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a day of the week in the reference timezone. Values follow time.Weekday.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// AllWeekdays lists days in the institution's display order (Monday first).
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayNames = map[Weekday]string{
	Sunday:    "SUNDAY",
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
}

var weekdayLookup = map[string]Weekday{
	"SUNDAY": Sunday, "SUN": Sunday,
	"MONDAY": Monday, "MON": Monday,
	"TUESDAY": Tuesday, "TUE": Tuesday,
	"WEDNESDAY": Wednesday, "WED": Wednesday,
	"THURSDAY": Thursday, "THU": Thursday,
	"FRIDAY": Friday, "FRI": Friday,
	"SATURDAY": Saturday, "SAT": Saturday,
}

// ParseWeekday accepts full or three-letter English day names in any case.
func ParseWeekday(raw string) (Weekday, error) {
	day, ok := weekdayLookup[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", raw)
	}
	return day, nil
}

// WeekdayFromTime converts a standard library weekday.
func WeekdayFromTime(d time.Weekday) Weekday {
	return Weekday(d)
}

// Valid reports whether d is one of the seven days.
func (d Weekday) Valid() bool {
	return d >= Sunday && d <= Saturday
}

// Time returns the standard library representation.
func (d Weekday) Time() time.Weekday {
	return time.Weekday(d)
}

// Add shifts the weekday by n days, wrapping around the week.
func (d Weekday) Add(n int) Weekday {
	return Weekday(((int(d)+n)%7 + 7) % 7)
}

func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("WEEKDAY(%d)", int(d))
}

// MarshalText renders the upper-case day name.
func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText parses a day name.
func (d *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
