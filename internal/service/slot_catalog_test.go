package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

func TestNewSlotCatalogExpandsConfiguredHours(t *testing.T) {
	catalog := newTestCatalog(t)

	assert.Equal(t, 60, catalog.SlotDuration())
	assert.Equal(t, []models.Weekday{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday, models.Saturday}, catalog.Days())

	monday := catalog.ListSlots(models.Monday)
	require.Len(t, monday, 15)
	assert.Equal(t, "07:00-08:00", monday[0].String())
	assert.Equal(t, "21:00-22:00", monday[14].String())
	assert.Empty(t, catalog.ListSlots(models.Sunday))
}

func TestSlotCatalogIsValidSlot(t *testing.T) {
	catalog := newTestCatalog(t)

	assert.True(t, catalog.IsValidSlot(hourSlot(models.Monday, 9)))
	assert.True(t, catalog.IsValidSlot(hourSlot(models.Saturday, 21)))
	assert.False(t, catalog.IsValidSlot(hourSlot(models.Sunday, 9)))
	assert.False(t, catalog.IsValidSlot(hourSlot(models.Monday, 22)))
	assert.False(t, catalog.IsValidSlot(models.WeeklySlot{Day: models.Monday, Range: models.TimeRange{Start: models.NewTimeOfDay(9, 30), End: models.NewTimeOfDay(10, 30)}}))
}

func TestSlotCatalogListSlotsReturnsCopy(t *testing.T) {
	catalog := newTestCatalog(t)

	slots := catalog.ListSlots(models.Monday)
	slots[0] = hourRange(3)
	assert.True(t, catalog.IsValidSlot(hourSlot(models.Monday, 7)))
}

func TestNewSlotCatalogRejectsMisconfiguration(t *testing.T) {
	cases := []struct {
		name string
		cfg  SlotCatalogConfig
	}{
		{name: "bad start", cfg: SlotCatalogConfig{FirstStart: "7am", LastEnd: "22:00", Duration: time.Hour, Days: []string{"monday"}}},
		{name: "bad duration", cfg: SlotCatalogConfig{FirstStart: "07:00", LastEnd: "22:00", Duration: 90 * time.Second, Days: []string{"monday"}}},
		{name: "bad day", cfg: SlotCatalogConfig{FirstStart: "07:00", LastEnd: "22:00", Duration: time.Hour, Days: []string{"funday"}}},
		{name: "no days", cfg: SlotCatalogConfig{FirstStart: "07:00", LastEnd: "22:00", Duration: time.Hour}},
		{name: "window too short", cfg: SlotCatalogConfig{FirstStart: "07:00", LastEnd: "07:30", Duration: time.Hour, Days: []string{"monday"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSlotCatalog(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewSlotCatalogFromEntriesValidates(t *testing.T) {
	_, err := NewSlotCatalogFromEntries(map[models.Weekday][]models.TimeRange{
		models.Monday: {hourRange(9), {Start: models.NewTimeOfDay(9, 30), End: models.NewTimeOfDay(10, 30)}},
	})
	assert.Error(t, err, "overlapping entries")

	_, err = NewSlotCatalogFromEntries(map[models.Weekday][]models.TimeRange{
		models.Monday:  {hourRange(9)},
		models.Tuesday: {{Start: models.NewTimeOfDay(9, 0), End: models.NewTimeOfDay(9, 30)}},
	})
	assert.Error(t, err, "mixed durations")

	catalog, err := NewSlotCatalogFromEntries(map[models.Weekday][]models.TimeRange{
		models.Sunday: {hourRange(18), hourRange(8)},
		models.Monday: {hourRange(9)},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Weekday{models.Monday, models.Sunday}, catalog.Days())
	assert.Equal(t, []models.TimeRange{hourRange(8), hourRange(18)}, catalog.ListSlots(models.Sunday))
}
