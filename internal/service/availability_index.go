package service

import (
	"sort"
	"sync"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

type occupancyKey struct {
	participantID    string
	excludingBatchID string
}

// AvailabilityIndex answers occupancy questions over one immutable batch snapshot. Build a new
// index for every request; results are memoised only for the lifetime of this instance.
type AvailabilityIndex struct {
	batches []models.Batch

	mu   sync.Mutex
	memo map[occupancyKey][]models.Occupancy
}

// NewAvailabilityIndex captures a snapshot. Batches are cloned so later caller mutations cannot leak in.
func NewAvailabilityIndex(snapshot models.BatchSnapshot) *AvailabilityIndex {
	batches := make([]models.Batch, len(snapshot.Batches))
	for i, b := range snapshot.Batches {
		batches[i] = b.Clone()
	}
	return &AvailabilityIndex{batches: batches, memo: make(map[occupancyKey][]models.Occupancy)}
}

// Batch returns a copy of the batch with the given id from the snapshot.
func (idx *AvailabilityIndex) Batch(id string) (models.Batch, bool) {
	for _, b := range idx.batches {
		if b.ID == id {
			return b.Clone(), true
		}
	}
	return models.Batch{}, false
}

// OccupancyOf lists every slot the participant holds, as teacher or enrolled participant, in all
// batches except excludingBatchID.
func (idx *AvailabilityIndex) OccupancyOf(participantID, excludingBatchID string) []models.Occupancy {
	key := occupancyKey{participantID: participantID, excludingBatchID: excludingBatchID}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if cached, ok := idx.memo[key]; ok {
		return append([]models.Occupancy(nil), cached...)
	}

	var result []models.Occupancy
	if participantID != "" {
		for _, batch := range idx.batches {
			if excludingBatchID != "" && batch.ID == excludingBatchID {
				continue
			}
			teaches := batch.Teacher() == participantID
			for _, assignment := range batch.Assignments {
				// A teacher enrolled in their own batch holds the slot in both roles.
				if teaches {
					result = append(result, models.Occupancy{Slot: assignment.Slot, BatchID: batch.ID, CourseID: batch.CourseID, Role: models.OccupancyRoleTeacher})
				}
				if containsID(assignment.ParticipantIDs, participantID) {
					result = append(result, models.Occupancy{Slot: assignment.Slot, BatchID: batch.ID, CourseID: batch.CourseID, Role: models.OccupancyRoleParticipant})
				}
			}
		}
	}
	sortOccupancy(result)
	idx.memo[key] = result
	return append([]models.Occupancy(nil), result...)
}

// IsFree reports whether no held slot overlaps the given one.
func (idx *AvailabilityIndex) IsFree(participantID string, slot models.WeeklySlot, excludingBatchID string) bool {
	for _, occ := range idx.OccupancyOf(participantID, excludingBatchID) {
		if Overlaps(occ.Slot, slot) {
			return false
		}
	}
	return true
}

func sortOccupancy(items []models.Occupancy) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Slot, items[j].Slot
		if dayOrder(a.Day) != dayOrder(b.Day) {
			return dayOrder(a.Day) < dayOrder(b.Day)
		}
		if a.Range.Start != b.Range.Start {
			return a.Range.Start < b.Range.Start
		}
		if items[i].BatchID != items[j].BatchID {
			return items[i].BatchID < items[j].BatchID
		}
		return items[i].Role == models.OccupancyRoleTeacher && items[j].Role != models.OccupancyRoleTeacher
	})
}

// dayOrder sorts Monday first.
func dayOrder(d models.Weekday) int {
	return (int(d) + 6) % 7
}

func containsID(ids []string, id string) bool {
	for _, item := range ids {
		if item == id {
			return true
		}
	}
	return false
}
