package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

// BatchAssembler edits one batch's weekly schedule while enforcing the batch-level invariants:
// at most two weekdays, one catalog slot per weekday, no teacher double-booking, and a complete
// schedule before commit. Every operation either applies fully or returns a *models.SchedulingError
// and leaves the assembler untouched.
type BatchAssembler struct {
	catalog   *SlotCatalog
	detector  *ConflictDetector
	batch     models.Batch
	days      []models.DayChoice
	committed bool
}

// NewBatchAssembler restores an edit session over a detector built from the current snapshot.
func NewBatchAssembler(catalog *SlotCatalog, detector *ConflictDetector, batch models.Batch, days []models.DayChoice, committed bool) *BatchAssembler {
	a := &BatchAssembler{
		catalog:   catalog,
		detector:  detector,
		batch:     batch.Clone(),
		days:      cloneDays(days),
		committed: committed,
	}
	if len(a.days) == 0 && len(a.batch.Assignments) > 0 {
		for _, assignment := range a.batch.Assignments {
			rng := assignment.Slot.Range
			a.days = append(a.days, models.DayChoice{Day: assignment.Slot.Day, Range: &rng})
		}
	}
	a.rebuildAssignments()
	return a
}

// Batch returns a copy of the batch with assignments reflecting the current selection.
func (a *BatchAssembler) Batch() models.Batch {
	return a.batch.Clone()
}

// Days returns a copy of the chosen weekdays and their slots.
func (a *BatchAssembler) Days() []models.DayChoice {
	return cloneDays(a.days)
}

// Committed reports whether Commit succeeded.
func (a *BatchAssembler) Committed() bool {
	return a.committed
}

// State derives the lifecycle phase from the current selection.
func (a *BatchAssembler) State() models.AssemblerState {
	switch {
	case a.committed:
		return models.StateCommitted
	case len(a.days) == 0:
		return models.StateEmpty
	}
	for _, choice := range a.days {
		if choice.Range == nil {
			return models.StateDaysChosen
		}
	}
	if len(a.batch.ParticipantIDs) == 0 {
		return models.StateSlotsAssigned
	}
	return models.StateParticipantsAssigned
}

// SelectDay adds a weekday. Re-selecting a chosen day is a no-op; a third distinct day is rejected.
func (a *BatchAssembler) SelectDay(day models.Weekday) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	if !day.Valid() || len(a.catalog.ListSlots(day)) == 0 {
		return models.NewSchedulingError(models.KindInvalidSlot, fmt.Sprintf("%s is not offered by the catalog", day))
	}
	if a.dayIndex(day) >= 0 {
		return nil
	}
	if len(a.days) >= models.MaxWeeklySlots {
		return models.NewSchedulingError(models.KindCapacityExceeded,
			fmt.Sprintf("a batch meets on at most %d weekdays; deselect a day before choosing %s", models.MaxWeeklySlots, day))
	}
	a.days = append(a.days, models.DayChoice{Day: day})
	a.sortDays()
	a.rebuildAssignments()
	return nil
}

// DeselectDay removes a weekday and its slot.
func (a *BatchAssembler) DeselectDay(day models.Weekday) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	i := a.dayIndex(day)
	if i < 0 {
		return nil
	}
	a.days = append(a.days[:i], a.days[i+1:]...)
	a.rebuildAssignments()
	return nil
}

// SelectSlot chooses the catalog slot for an already selected weekday, replacing any previous
// choice for that day. A teacher already busy at that time elsewhere blocks the selection.
func (a *BatchAssembler) SelectSlot(day models.Weekday, rng models.TimeRange) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	i := a.dayIndex(day)
	if i < 0 {
		return models.NewSchedulingError(models.KindInvalidBatch, fmt.Sprintf("select %s before choosing its time", day))
	}
	slot := models.WeeklySlot{Day: day, Range: rng}
	if !a.catalog.IsValidSlot(slot) {
		return &models.SchedulingError{Kind: models.KindInvalidSlot, Message: fmt.Sprintf("%s is not a catalog slot", slot), Slot: &slot}
	}
	if teacher := a.batch.Teacher(); teacher != "" {
		if conflict := a.detector.CheckAssignment(teacher, slot, a.batch.ID); conflict != nil {
			return &models.SchedulingError{
				Kind:      models.KindTeacherConflict,
				Message:   fmt.Sprintf("teacher %s already teaches batch %s on %s", teacher, conflict.Existing.BatchID, conflict.Existing.Slot),
				Slot:      &slot,
				Conflicts: []models.SlotConflict{*conflict},
			}
		}
	}
	a.days[i].Range = &rng
	a.rebuildAssignments()
	return nil
}

// SetTeacher assigns or clears the teacher. The teacher must be free for every selected slot.
func (a *BatchAssembler) SetTeacher(teacherID string) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		a.batch.TeacherID = nil
		return nil
	}
	if conflicts := a.detector.CheckAll(teacherID, a.batch.Slots(), a.batch.ID); len(conflicts) > 0 {
		first := conflicts[0]
		return &models.SchedulingError{
			Kind:      models.KindTeacherConflict,
			Message:   fmt.Sprintf("teacher %s already teaches batch %s on %s", teacherID, first.Existing.BatchID, first.Existing.Slot),
			Slot:      &first.Proposed,
			Conflicts: conflicts,
		}
	}
	a.batch.TeacherID = &teacherID
	return nil
}

// CheckParticipant reports the participant's collisions with every slot currently selected.
func (a *BatchAssembler) CheckParticipant(participantID string) []models.SlotConflict {
	return a.detector.CheckAll(participantID, a.batch.Slots(), a.batch.ID)
}

// AssignParticipant enrols a participant. Conflicts are always reported; they block the enrolment
// unless allowParticipantConflict is set.
func (a *BatchAssembler) AssignParticipant(participantID string, allowParticipantConflict bool) ([]models.SlotConflict, error) {
	if err := a.ensureEditable(); err != nil {
		return nil, err
	}
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return nil, models.NewSchedulingError(models.KindInvalidBatch, "participant id is required")
	}
	conflicts := a.CheckParticipant(participantID)
	if len(conflicts) > 0 && !allowParticipantConflict {
		first := conflicts[0]
		return conflicts, &models.SchedulingError{
			Kind:      models.KindParticipantConflict,
			Message:   fmt.Sprintf("participant %s already attends batch %s on %s", participantID, first.Existing.BatchID, first.Existing.Slot),
			Slot:      &first.Proposed,
			Conflicts: conflicts,
		}
	}
	if !containsID(a.batch.ParticipantIDs, participantID) {
		a.batch.ParticipantIDs = append(a.batch.ParticipantIDs, participantID)
		a.rebuildAssignments()
	}
	return conflicts, nil
}

// AssignAvailable is the bulk "select all available" action: conflict-free candidates are
// enrolled, the rest are returned with their conflicts.
func (a *BatchAssembler) AssignAvailable(participantIDs []string) ([]string, []models.ParticipantAvailability, error) {
	if err := a.ensureEditable(); err != nil {
		return nil, nil, err
	}
	var added []string
	var skipped []models.ParticipantAvailability
	for _, status := range a.ParticipantAvailability(participantIDs) {
		if status.HasConflict {
			skipped = append(skipped, status)
			continue
		}
		if !containsID(a.batch.ParticipantIDs, status.ParticipantID) {
			a.batch.ParticipantIDs = append(a.batch.ParticipantIDs, status.ParticipantID)
		}
		added = append(added, status.ParticipantID)
	}
	a.rebuildAssignments()
	return added, skipped, nil
}

// RemoveParticipant drops an enrolment. Removing an absent participant is a no-op.
func (a *BatchAssembler) RemoveParticipant(participantID string) error {
	if err := a.ensureEditable(); err != nil {
		return err
	}
	kept := a.batch.ParticipantIDs[:0:0]
	for _, id := range a.batch.ParticipantIDs {
		if id != participantID {
			kept = append(kept, id)
		}
	}
	a.batch.ParticipantIDs = kept
	a.rebuildAssignments()
	return nil
}

// ParticipantAvailability flags each candidate that would be double-booked by this batch.
func (a *BatchAssembler) ParticipantAvailability(participantIDs []string) []models.ParticipantAvailability {
	seen := make(map[string]struct{}, len(participantIDs))
	result := make([]models.ParticipantAvailability, 0, len(participantIDs))
	for _, raw := range participantIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		conflicts := a.CheckParticipant(id)
		result = append(result, models.ParticipantAvailability{ParticipantID: id, HasConflict: len(conflicts) > 0, Conflicts: conflicts})
	}
	return result
}

// Commit validates the finished schedule and marks the assembler committed.
func (a *BatchAssembler) Commit() (models.Batch, error) {
	if err := a.ensureEditable(); err != nil {
		return models.Batch{}, err
	}
	if strings.TrimSpace(a.batch.CourseID) == "" {
		return models.Batch{}, models.NewSchedulingError(models.KindInvalidBatch, "course is required")
	}
	switch a.batch.Mode {
	case models.BatchModeOnline:
	case models.BatchModeOffline:
		if a.batch.LocationID == nil || strings.TrimSpace(*a.batch.LocationID) == "" {
			return models.Batch{}, models.NewSchedulingError(models.KindInvalidBatch, "offline batches require a location")
		}
	default:
		return models.Batch{}, models.NewSchedulingError(models.KindInvalidBatch, fmt.Sprintf("unknown batch mode %q", a.batch.Mode))
	}
	if len(a.batch.Assignments) != models.MaxWeeklySlots {
		return models.Batch{}, models.NewSchedulingError(models.KindIncompleteSchedule,
			fmt.Sprintf("a batch needs exactly %d weekly slots, it has %d", models.MaxWeeklySlots, len(a.batch.Assignments)))
	}
	if len(a.batch.ParticipantIDs) == 0 {
		return models.Batch{}, models.NewSchedulingError(models.KindIncompleteSchedule, "a batch needs at least one participant")
	}
	if teacher := a.batch.Teacher(); teacher != "" {
		if conflicts := a.detector.CheckAll(teacher, a.batch.Slots(), a.batch.ID); len(conflicts) > 0 {
			first := conflicts[0]
			return models.Batch{}, &models.SchedulingError{
				Kind:      models.KindTeacherConflict,
				Message:   fmt.Sprintf("teacher %s already teaches batch %s on %s", teacher, first.Existing.BatchID, first.Existing.Slot),
				Slot:      &first.Proposed,
				Conflicts: conflicts,
			}
		}
	}
	a.committed = true
	return a.batch.Clone(), nil
}

func (a *BatchAssembler) ensureEditable() error {
	if a.committed {
		return models.NewSchedulingError(models.KindInvalidBatch, "batch is already committed")
	}
	return nil
}

func (a *BatchAssembler) dayIndex(day models.Weekday) int {
	for i, choice := range a.days {
		if choice.Day == day {
			return i
		}
	}
	return -1
}

func (a *BatchAssembler) sortDays() {
	sort.SliceStable(a.days, func(i, j int) bool { return dayOrder(a.days[i].Day) < dayOrder(a.days[j].Day) })
}

// rebuildAssignments derives one assignment per slotted day; every assignment carries the full
// participant set because enrolled participants attend both weekly classes.
func (a *BatchAssembler) rebuildAssignments() {
	assignments := make([]models.ScheduleAssignment, 0, len(a.days))
	for _, choice := range a.days {
		if choice.Range == nil {
			continue
		}
		assignments = append(assignments, models.ScheduleAssignment{
			BatchID:        a.batch.ID,
			Slot:           models.WeeklySlot{Day: choice.Day, Range: *choice.Range},
			ParticipantIDs: append([]string(nil), a.batch.ParticipantIDs...),
		})
	}
	a.batch.Assignments = assignments
}

func cloneDays(days []models.DayChoice) []models.DayChoice {
	out := make([]models.DayChoice, len(days))
	for i, choice := range days {
		out[i] = models.DayChoice{Day: choice.Day}
		if choice.Range != nil {
			rng := *choice.Range
			out[i].Range = &rng
		}
	}
	return out
}
