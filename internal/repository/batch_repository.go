package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

const (
	batchColumns           = `id, course_id, teacher_id, mode, location_id, version, created_at, updated_at`
	batchAssignmentSelect  = `SELECT batch_id, day_of_week, start_minute, end_minute FROM batch_assignments`
	batchParticipantSelect = `SELECT batch_id, participant_id FROM batch_participants`
)

// BatchRepository persists batches together with their weekly assignments and enrolments.
type BatchRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db, now: time.Now}
}

// ListAll loads every batch. The result is the snapshot the conflict engine works on.
func (r *BatchRepository) ListAll(ctx context.Context) ([]models.Batch, error) {
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, `SELECT `+batchColumns+` FROM batches ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	var assignments []models.BatchAssignmentRow
	if err := r.db.SelectContext(ctx, &assignments, batchAssignmentSelect+` ORDER BY batch_id, day_of_week, start_minute`); err != nil {
		return nil, fmt.Errorf("list batch assignments: %w", err)
	}
	var participants []models.BatchParticipantRow
	if err := r.db.SelectContext(ctx, &participants, batchParticipantSelect+` ORDER BY batch_id, participant_id`); err != nil {
		return nil, fmt.Errorf("list batch participants: %w", err)
	}
	return assembleBatches(batches, assignments, participants)
}

// FindByID loads one batch; sql.ErrNoRows is returned when it does not exist.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("get batch %s: %w", id, err)
	}
	var assignments []models.BatchAssignmentRow
	if err := r.db.SelectContext(ctx, &assignments, batchAssignmentSelect+` WHERE batch_id = $1 ORDER BY day_of_week, start_minute`, id); err != nil {
		return nil, fmt.Errorf("list batch assignments: %w", err)
	}
	var participants []models.BatchParticipantRow
	if err := r.db.SelectContext(ctx, &participants, batchParticipantSelect+` WHERE batch_id = $1 ORDER BY participant_id`, id); err != nil {
		return nil, fmt.Errorf("list batch participants: %w", err)
	}
	batches, err := assembleBatches([]models.Batch{batch}, assignments, participants)
	if err != nil {
		return nil, err
	}
	return &batches[0], nil
}

// Save writes the batch and replaces its assignments and enrolments in one transaction.
// expectedVersion 0 inserts a new batch; otherwise the stored version must match, and
// models.ErrBatchVersionConflict is returned when it does not.
func (r *BatchRepository) Save(ctx context.Context, batch *models.Batch, expectedVersion int) (err error) {
	if batch == nil {
		return fmt.Errorf("batch payload is nil")
	}
	if batch.ID == "" || batch.CourseID == "" {
		return fmt.Errorf("batch id and course_id are required")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now().UTC()
	var result sql.Result
	if expectedVersion == 0 {
		result, err = tx.ExecContext(ctx, `INSERT INTO batches (id, course_id, teacher_id, mode, location_id, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 1, $6, $6) ON CONFLICT (id) DO NOTHING`,
			batch.ID, batch.CourseID, batch.TeacherID, batch.Mode, batch.LocationID, now)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
	} else {
		result, err = tx.ExecContext(ctx, `UPDATE batches SET course_id = $1, teacher_id = $2, mode = $3, location_id = $4, version = version + 1, updated_at = $5
WHERE id = $6 AND version = $7`,
			batch.CourseID, batch.TeacherID, batch.Mode, batch.LocationID, now, batch.ID, expectedVersion)
		if err != nil {
			return fmt.Errorf("update batch: %w", err)
		}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("batch rows affected: %w", err)
	}
	if affected == 0 {
		err = models.ErrBatchVersionConflict
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM batch_assignments WHERE batch_id = $1`, batch.ID); err != nil {
		return fmt.Errorf("clear batch assignments: %w", err)
	}
	for _, assignment := range batch.Assignments {
		slot := assignment.Slot
		if _, err = tx.ExecContext(ctx, `INSERT INTO batch_assignments (batch_id, day_of_week, start_minute, end_minute) VALUES ($1, $2, $3, $4)`,
			batch.ID, int(slot.Day), int(slot.Range.Start), int(slot.Range.End)); err != nil {
			return fmt.Errorf("insert batch assignment %s: %w", slot, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM batch_participants WHERE batch_id = $1`, batch.ID); err != nil {
		return fmt.Errorf("clear batch participants: %w", err)
	}
	for _, participantID := range batch.ParticipantIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO batch_participants (batch_id, participant_id) VALUES ($1, $2)`, batch.ID, participantID); err != nil {
			return fmt.Errorf("insert batch participant %s: %w", participantID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save batch: %w", err)
	}

	batch.Version = expectedVersion + 1
	if expectedVersion == 0 {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now
	return nil
}

// Delete removes a batch with its assignments and enrolments.
func (r *BatchRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM batch_participants WHERE batch_id = $1`, id); err != nil {
		return fmt.Errorf("delete batch participants: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM batch_assignments WHERE batch_id = $1`, id); err != nil {
		return fmt.Errorf("delete batch assignments: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("batch rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete batch: %w", err)
	}
	return nil
}

func assembleBatches(batches []models.Batch, assignments []models.BatchAssignmentRow, participants []models.BatchParticipantRow) ([]models.Batch, error) {
	members := make(map[string][]string, len(batches))
	for _, row := range participants {
		members[row.BatchID] = append(members[row.BatchID], row.ParticipantID)
	}
	slots := make(map[string][]models.WeeklySlot, len(batches))
	for _, row := range assignments {
		slot := models.WeeklySlot{
			Day:   models.Weekday(row.DayOfWeek),
			Range: models.TimeRange{Start: models.TimeOfDay(row.StartMinute), End: models.TimeOfDay(row.EndMinute)},
		}
		if err := slot.Validate(); err != nil {
			return nil, fmt.Errorf("batch %s assignment: %w: %v", row.BatchID, models.ErrCorruptBatch, err)
		}
		slots[row.BatchID] = append(slots[row.BatchID], slot)
		if len(slots[row.BatchID]) > models.MaxWeeklySlots {
			return nil, fmt.Errorf("batch %s has more than %d assignments: %w", row.BatchID, models.MaxWeeklySlots, models.ErrCorruptBatch)
		}
	}

	out := make([]models.Batch, len(batches))
	for i, batch := range batches {
		batch.ParticipantIDs = append([]string{}, members[batch.ID]...)
		batch.Assignments = make([]models.ScheduleAssignment, 0, len(slots[batch.ID]))
		for _, slot := range slots[batch.ID] {
			batch.Assignments = append(batch.Assignments, models.ScheduleAssignment{
				BatchID:        batch.ID,
				Slot:           slot,
				ParticipantIDs: append([]string(nil), batch.ParticipantIDs...),
			})
		}
		out[i] = batch
	}
	return out, nil
}
