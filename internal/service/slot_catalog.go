package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

// SlotCatalogConfig describes the institution's offered hours.
type SlotCatalogConfig struct {
	FirstStart string
	LastEnd    string
	Duration   time.Duration
	Days       []string
}

// SlotCatalog is the fixed set of assignable weekly slots. It is built once at startup and never
// mutated afterwards, so it is safe for concurrent use.
type SlotCatalog struct {
	duration int
	days     []models.Weekday
	ranges   map[models.Weekday][]models.TimeRange
}

// NewSlotCatalog expands the configuration into back-to-back slots of equal duration.
func NewSlotCatalog(cfg SlotCatalogConfig) (*SlotCatalog, error) {
	first, err := models.ParseTimeOfDay(cfg.FirstStart)
	if err != nil {
		return nil, fmt.Errorf("catalog first start: %w", err)
	}
	last, err := models.ParseTimeOfDay(cfg.LastEnd)
	if err != nil {
		return nil, fmt.Errorf("catalog last end: %w", err)
	}
	if cfg.Duration <= 0 || cfg.Duration%time.Minute != 0 {
		return nil, fmt.Errorf("catalog slot duration %s must be a positive whole number of minutes", cfg.Duration)
	}
	step := models.TimeOfDay(cfg.Duration / time.Minute)

	var templates []models.TimeRange
	for start := first; start+step <= last; start += step {
		templates = append(templates, models.TimeRange{Start: start, End: start + step})
	}

	days := make([]models.Weekday, 0, len(cfg.Days))
	for _, raw := range cfg.Days {
		day, err := models.ParseWeekday(raw)
		if err != nil {
			return nil, fmt.Errorf("catalog days: %w", err)
		}
		days = append(days, day)
	}

	entries := make(map[models.Weekday][]models.TimeRange, len(days))
	for _, day := range days {
		entries[day] = templates
	}
	return NewSlotCatalogFromEntries(entries)
}

// NewSlotCatalogFromEntries validates an explicit catalog: all entries share one duration and no
// two entries on the same day overlap.
func NewSlotCatalogFromEntries(entries map[models.Weekday][]models.TimeRange) (*SlotCatalog, error) {
	catalog := &SlotCatalog{ranges: make(map[models.Weekday][]models.TimeRange, len(entries))}
	for day, ranges := range entries {
		if !day.Valid() {
			return nil, fmt.Errorf("catalog contains invalid weekday %d", int(day))
		}
		if len(ranges) == 0 {
			continue
		}
		sorted := append([]models.TimeRange(nil), ranges...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
		for i, r := range sorted {
			if err := r.Validate(); err != nil {
				return nil, fmt.Errorf("catalog %s: %w", day, err)
			}
			if catalog.duration == 0 {
				catalog.duration = r.Duration()
			}
			if r.Duration() != catalog.duration {
				return nil, fmt.Errorf("catalog %s %s: duration %dm differs from %dm", day, r, r.Duration(), catalog.duration)
			}
			if i > 0 && sorted[i-1].End > r.Start {
				return nil, fmt.Errorf("catalog %s: %s overlaps %s", day, sorted[i-1], r)
			}
		}
		catalog.ranges[day] = sorted
	}
	if len(catalog.ranges) == 0 {
		return nil, fmt.Errorf("catalog has no slots")
	}
	for _, day := range models.AllWeekdays {
		if _, ok := catalog.ranges[day]; ok {
			catalog.days = append(catalog.days, day)
		}
	}
	return catalog, nil
}

// Days lists offered weekdays, Monday first.
func (c *SlotCatalog) Days() []models.Weekday {
	return append([]models.Weekday(nil), c.days...)
}

// SlotDuration returns the uniform slot length in minutes.
func (c *SlotCatalog) SlotDuration() int {
	return c.duration
}

// ListSlots returns the offered ranges for a day in start order. The slice is a copy.
func (c *SlotCatalog) ListSlots(day models.Weekday) []models.TimeRange {
	return append([]models.TimeRange(nil), c.ranges[day]...)
}

// IsValidSlot reports catalog membership.
func (c *SlotCatalog) IsValidSlot(slot models.WeeklySlot) bool {
	ranges := c.ranges[slot.Day]
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].Start >= slot.Range.Start })
	return i < len(ranges) && ranges[i] == slot.Range
}
