package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

// CoursePreferenceRepository persists participants' course timing preferences.
type CoursePreferenceRepository struct {
	db *sqlx.DB
}

// NewCoursePreferenceRepository constructs the repository.
func NewCoursePreferenceRepository(db *sqlx.DB) *CoursePreferenceRepository {
	return &CoursePreferenceRepository{db: db}
}

// ListByParticipant returns every preference of the participant across courses.
func (r *CoursePreferenceRepository) ListByParticipant(ctx context.Context, participantID string) ([]models.CourseTimingPreference, error) {
	const query = `SELECT id, participant_id, course_id, day_of_week, start_minute, end_minute, display_timezone, display_label, created_at
FROM course_timing_preferences WHERE participant_id = $1 ORDER BY course_id, day_of_week, start_minute`
	var prefs []models.CourseTimingPreference
	if err := r.db.SelectContext(ctx, &prefs, query, participantID); err != nil {
		return nil, fmt.Errorf("list course preferences: %w", err)
	}
	for i := range prefs {
		prefs[i].LoadSlot()
	}
	return prefs, nil
}

// ReplaceForCourse swaps the participant's preferences for one course atomically.
func (r *CoursePreferenceRepository) ReplaceForCourse(ctx context.Context, participantID, courseID string, prefs []models.CourseTimingPreference) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace course preferences: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM course_timing_preferences WHERE participant_id = $1 AND course_id = $2`, participantID, courseID); err != nil {
		return fmt.Errorf("clear course preferences: %w", err)
	}
	const insert = `INSERT INTO course_timing_preferences
(id, participant_id, course_id, day_of_week, start_minute, end_minute, display_timezone, display_label, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i := range prefs {
		pref := &prefs[i]
		pref.SyncColumns()
		if _, err = tx.ExecContext(ctx, insert, pref.ID, participantID, courseID, pref.DayOfWeek, pref.StartMinute, pref.EndMinute,
			pref.DisplayTimezone, pref.DisplayLabel, pref.CreatedAt); err != nil {
			return fmt.Errorf("insert course preference: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit course preferences: %w", err)
	}
	return nil
}
