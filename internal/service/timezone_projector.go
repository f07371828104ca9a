package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

// TimezoneProjector renders canonical weekly slots in arbitrary IANA timezones and normalises
// display-zone input back to canonical form.
type TimezoneProjector struct {
	reference *time.Location
	name      string
	label     string
	now       func() time.Time
	locations sync.Map
}

// NewTimezoneProjector loads the reference timezone. An unknown reference zone is a configuration error.
func NewTimezoneProjector(referenceTZ, label string, now func() time.Time) (*TimezoneProjector, error) {
	referenceTZ = strings.TrimSpace(referenceTZ)
	loc, err := time.LoadLocation(referenceTZ)
	if err != nil {
		return nil, fmt.Errorf("load reference timezone %q: %w", referenceTZ, err)
	}
	if now == nil {
		now = time.Now
	}
	return &TimezoneProjector{reference: loc, name: referenceTZ, label: strings.TrimSpace(label), now: now}, nil
}

// Reference returns the reference timezone identifier.
func (p *TimezoneProjector) Reference() string {
	return p.name
}

// ReferenceLabel renders a slot the way it is stored, e.g. "MONDAY 09:00-10:00 IST".
func (p *TimezoneProjector) ReferenceLabel(slot models.WeeklySlot) string {
	label := p.label
	if label == "" {
		label = p.name
	}
	return fmt.Sprintf("%s %s", slot.String(), label)
}

// ResolveLocation validates an untrusted timezone identifier.
func (p *TimezoneProjector) ResolveLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || tz == p.name {
		return p.reference, nil
	}
	if cached, ok := p.locations.Load(tz); ok {
		return cached.(*time.Location), nil
	}
	// time.LoadLocation treats "Local" as the host zone, which is never a caller's zone.
	if strings.EqualFold(tz, "local") {
		return nil, unknownTimezone(tz)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, unknownTimezone(tz)
	}
	p.locations.Store(tz, loc)
	return loc, nil
}

// Project converts a canonical slot to the wall-clock day and time in tz. The reference zone is
// returned as identity without date arithmetic. An unknown zone yields the identity projection
// flagged as Fallback together with an UNKNOWN_TIMEZONE error.
func (p *TimezoneProjector) Project(slot models.WeeklySlot, tz string) (models.Projection, error) {
	if err := slot.Validate(); err != nil {
		return models.Projection{}, &models.SchedulingError{Kind: models.KindInvalidSlot, Message: err.Error(), Slot: &slot}
	}
	tz = strings.TrimSpace(tz)
	if tz == "" || tz == p.name {
		return p.identity(slot), nil
	}
	loc, err := p.ResolveLocation(tz)
	if err != nil {
		fallback := p.identity(slot)
		fallback.Fallback = true
		return fallback, err
	}

	date := p.nextOccurrence(slot.Day, p.reference)
	start := wallClock(date, slot.Range.Start, p.reference).In(loc)
	end := wallClock(date, slot.Range.End, p.reference).In(loc)

	day := models.WeekdayFromTime(start.Weekday())
	endDay := models.WeekdayFromTime(end.Weekday())
	startMinute := minuteOfDay(start)
	endMinute := minuteOfDay(end)
	if endMinute == 0 && endDay != day {
		endMinute = models.MinutesPerDay
		endDay = day
	}

	projection := models.Projection{
		Slot:           slot,
		Timezone:       tz,
		Day:            day,
		Start:          startMinute,
		End:            endMinute,
		EndDay:         endDay,
		ReferenceLabel: p.ReferenceLabel(slot),
	}
	projection.Label = displayLabel(projection, start.Format("MST"))
	return projection, nil
}

// Canonicalize converts a wall-clock day and time range in tz to a canonical slot. An end at or
// before the start is read as ending on the following day. Inputs whose canonical form would cross
// midnight in the reference zone are rejected.
func (p *TimezoneProjector) Canonicalize(day models.Weekday, start, end models.TimeOfDay, tz string) (models.WeeklySlot, error) {
	if !day.Valid() || start < 0 || start >= models.MinutesPerDay || end < 0 || end > models.MinutesPerDay {
		return models.WeeklySlot{}, models.NewSchedulingError(models.KindInvalidSlot, "day or time out of range")
	}
	loc, err := p.ResolveLocation(tz)
	if err != nil {
		return models.WeeklySlot{}, err
	}
	if loc == p.reference {
		slot := models.WeeklySlot{Day: day, Range: models.TimeRange{Start: start, End: end}}
		if err := slot.Validate(); err != nil {
			return models.WeeklySlot{}, &models.SchedulingError{Kind: models.KindInvalidSlot, Message: err.Error(), Slot: &slot}
		}
		return slot, nil
	}

	date := p.displayDate(day, start, loc)
	localStart := wallClock(date, start, loc)
	endDate := date
	if end <= start {
		endDate = date.AddDate(0, 0, 1)
	}
	localEnd := wallClock(endDate, end, loc)

	cs := localStart.In(p.reference)
	ce := localEnd.In(p.reference)
	canonicalDay := models.WeekdayFromTime(cs.Weekday())
	canonicalStart := minuteOfDay(cs)
	canonicalEnd := minuteOfDay(ce)
	sameDate := cs.Year() == ce.Year() && cs.YearDay() == ce.YearDay()
	switch {
	case sameDate:
	case canonicalEnd == 0 && ce.Sub(cs) < 24*time.Hour:
		canonicalEnd = models.MinutesPerDay
	default:
		return models.WeeklySlot{}, models.NewSchedulingError(models.KindInvalidSlot,
			fmt.Sprintf("%s %s-%s in %s crosses midnight in %s", day, start, end, tz, p.name))
	}

	slot := models.WeeklySlot{Day: canonicalDay, Range: models.TimeRange{Start: canonicalStart, End: canonicalEnd}}
	if err := slot.Validate(); err != nil {
		return models.WeeklySlot{}, &models.SchedulingError{Kind: models.KindInvalidSlot, Message: err.Error(), Slot: &slot}
	}
	return slot, nil
}

func (p *TimezoneProjector) identity(slot models.WeeklySlot) models.Projection {
	label := p.ReferenceLabel(slot)
	return models.Projection{
		Slot:           slot,
		Timezone:       p.name,
		Day:            slot.Day,
		Start:          slot.Range.Start,
		End:            slot.Range.End,
		EndDay:         slot.Day,
		Label:          label,
		ReferenceLabel: label,
	}
}

// displayDate picks the date in loc on which day falls within the same reference week Project
// anchors on, so both directions see the same UTC offsets.
func (p *TimezoneProjector) displayDate(day models.Weekday, start models.TimeOfDay, loc *time.Location) time.Time {
	for _, delta := range []int{0, -1, 1} {
		anchor := p.nextOccurrence(day.Add(delta), p.reference)
		local := anchor.In(loc)
		for _, shift := range []int{0, 1, -1} {
			date := time.Date(local.Year(), local.Month(), local.Day()+shift, 0, 0, 0, 0, loc)
			if models.WeekdayFromTime(date.Weekday()) != day {
				continue
			}
			canonical := wallClock(date, start, loc).In(p.reference)
			if canonical.Year() == anchor.Year() && canonical.YearDay() == anchor.YearDay() {
				return date
			}
		}
	}
	return p.nextOccurrence(day, loc)
}

// nextOccurrence returns midnight, in loc, of the next date (today included) falling on day.
func (p *TimezoneProjector) nextOccurrence(day models.Weekday, loc *time.Location) time.Time {
	today := p.now().In(loc)
	offset := (int(day.Time()) - int(today.Weekday()) + 7) % 7
	return time.Date(today.Year(), today.Month(), today.Day()+offset, 0, 0, 0, 0, loc)
}

func wallClock(date time.Time, minutes models.TimeOfDay, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, int(minutes), 0, 0, loc)
}

func minuteOfDay(t time.Time) models.TimeOfDay {
	return models.TimeOfDay(t.Hour()*60 + t.Minute())
}

func displayLabel(p models.Projection, zone string) string {
	label := fmt.Sprintf("%s %s-%s", p.Day, p.Start, p.End)
	if p.EndDay != p.Day {
		label += " (+1)"
	}
	if zone != "" {
		label += " " + zone
	}
	return label
}

func unknownTimezone(tz string) error {
	return models.NewSchedulingError(models.KindUnknownTimezone, fmt.Sprintf("could not project to unknown timezone %q", tz))
}
