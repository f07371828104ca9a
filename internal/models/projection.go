package models

// Projection is a canonical weekly slot rendered in a display timezone. The canonical slot is
// carried unchanged; the display range may cross midnight, in which case EndDay follows Day.
type Projection struct {
	Slot           WeeklySlot `json:"slot"`
	Timezone       string     `json:"timezone"`
	Day            Weekday    `json:"day"`
	Start          TimeOfDay  `json:"start"`
	End            TimeOfDay  `json:"end"`
	EndDay         Weekday    `json:"end_day"`
	Label          string     `json:"label"`
	ReferenceLabel string     `json:"reference_label"`
	Fallback       bool       `json:"fallback"`
}

// DirectoryKind selects which name table a lookup targets.
type DirectoryKind string

const (
	DirectoryCourses  DirectoryKind = "courses"
	DirectoryUsers    DirectoryKind = "users"
	DirectoryLocation DirectoryKind = "locations"
)
