package service

import "github.com/noah-isme/batch-slot-api/internal/models"

// Overlaps reports whether two weekly slots share any minute. Canonical ranges never cross midnight,
// so slots on different weekdays never overlap.
func Overlaps(a, b models.WeeklySlot) bool {
	if a.Day != b.Day {
		return false
	}
	return !(a.Range.End <= b.Range.Start || b.Range.End <= a.Range.Start)
}

// ConflictDetector checks proposed slots against an availability index.
type ConflictDetector struct {
	index *AvailabilityIndex
}

// NewConflictDetector wraps an index built for the current request.
func NewConflictDetector(index *AvailabilityIndex) *ConflictDetector {
	return &ConflictDetector{index: index}
}

// Index exposes the underlying snapshot index.
func (d *ConflictDetector) Index() *AvailabilityIndex {
	return d.index
}

// CheckAssignment returns the first existing occupancy that collides with proposed, or nil when the
// participant is free. The batch being edited is excluded, which makes re-selecting a slot the
// participant already holds there a no-op rather than a conflict.
func (d *ConflictDetector) CheckAssignment(participantID string, proposed models.WeeklySlot, excludingBatchID string) *models.SlotConflict {
	for _, occ := range d.index.OccupancyOf(participantID, excludingBatchID) {
		if Overlaps(occ.Slot, proposed) {
			return &models.SlotConflict{ParticipantID: participantID, Proposed: proposed, Existing: occ}
		}
	}
	return nil
}

// CheckAll checks every proposed slot and returns all collisions.
func (d *ConflictDetector) CheckAll(participantID string, proposed []models.WeeklySlot, excludingBatchID string) []models.SlotConflict {
	var conflicts []models.SlotConflict
	for _, slot := range proposed {
		if conflict := d.CheckAssignment(participantID, slot, excludingBatchID); conflict != nil {
			conflicts = append(conflicts, *conflict)
		}
	}
	return conflicts
}
