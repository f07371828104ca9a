package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/batch-slot-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var batchRowColumns = []string{"id", "course_id", "teacher_id", "mode", "location_id", "version", "created_at", "updated_at"}

func monday9() models.WeeklySlot {
	return models.WeeklySlot{Day: models.Monday, Range: models.TimeRange{Start: 9 * 60, End: 10 * 60}}
}

func thursday18() models.WeeklySlot {
	return models.WeeklySlot{Day: models.Thursday, Range: models.TimeRange{Start: 18 * 60, End: 19 * 60}}
}

func TestBatchRepositoryListAllAssemblesSnapshot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, teacher_id, mode, location_id, version, created_at, updated_at FROM batches ORDER BY created_at, id")).
		WillReturnRows(sqlmock.NewRows(batchRowColumns).
			AddRow("b1", "c1", "t1", "ONLINE", nil, 3, now, now).
			AddRow("b2", "c2", nil, "OFFLINE", "room-1", 1, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT batch_id, day_of_week, start_minute, end_minute FROM batch_assignments ORDER BY")).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id", "day_of_week", "start_minute", "end_minute"}).
			AddRow("b1", 1, 540, 600).
			AddRow("b1", 4, 1080, 1140))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT batch_id, participant_id FROM batch_participants ORDER BY")).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id", "participant_id"}).
			AddRow("b1", "p1").
			AddRow("b1", "p2").
			AddRow("b2", "p3"))

	batches, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 2)

	b1 := batches[0]
	assert.Equal(t, "t1", b1.Teacher())
	assert.Equal(t, 3, b1.Version)
	assert.Equal(t, []models.WeeklySlot{monday9(), thursday18()}, b1.Slots())
	assert.Equal(t, []string{"p1", "p2"}, b1.Assignments[0].ParticipantIDs)
	assert.Equal(t, "b1", b1.Assignments[1].BatchID)

	b2 := batches[1]
	assert.Nil(t, b2.TeacherID)
	require.NotNil(t, b2.LocationID)
	assert.Equal(t, "room-1", *b2.LocationID)
	assert.Empty(t, b2.Assignments)
	assert.Equal(t, []string{"p3"}, b2.ParticipantIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM batches WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryListAllRejectsCorruptAssignments(t *testing.T) {
	cases := map[string][]int{
		"weekday out of range": {7, 540, 600},
		"end before start":     {1, 600, 540},
		"end past midnight":    {1, 1380, 1500},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			db, mock, cleanup := newRepoMock(t)
			defer cleanup()
			repo := NewBatchRepository(db)
			now := time.Now()

			mock.ExpectQuery(regexp.QuoteMeta("FROM batches ORDER BY created_at, id")).
				WillReturnRows(sqlmock.NewRows(batchRowColumns).AddRow("b1", "c1", "t1", "ONLINE", nil, 1, now, now))
			mock.ExpectQuery(regexp.QuoteMeta("FROM batch_assignments ORDER BY")).
				WillReturnRows(sqlmock.NewRows([]string{"batch_id", "day_of_week", "start_minute", "end_minute"}).
					AddRow("b1", row[0], row[1], row[2]))
			mock.ExpectQuery(regexp.QuoteMeta("FROM batch_participants ORDER BY")).
				WillReturnRows(sqlmock.NewRows([]string{"batch_id", "participant_id"}))

			batches, err := repo.ListAll(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrCorruptBatch))
			assert.Nil(t, batches)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBatchRepositoryFindByIDRejectsTooManyAssignments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM batches WHERE id = $1")).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(batchRowColumns).AddRow("b1", "c1", nil, "ONLINE", nil, 2, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM batch_assignments WHERE batch_id = $1")).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"batch_id", "day_of_week", "start_minute", "end_minute"}).
			AddRow("b1", 1, 540, 600).
			AddRow("b1", 3, 540, 600).
			AddRow("b1", 4, 1080, 1140))
	mock.ExpectQuery(regexp.QuoteMeta("FROM batch_participants WHERE batch_id = $1")).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"batch_id", "participant_id"}))

	batch, err := repo.FindByID(context.Background(), "b1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCorruptBatch))
	assert.Nil(t, batch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositorySaveInsertsNewBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)
	fixed := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	teacher := "t1"
	batch := &models.Batch{
		ID:             "b1",
		CourseID:       "c1",
		TeacherID:      &teacher,
		Mode:           models.BatchModeOnline,
		ParticipantIDs: []string{"p1"},
		Assignments: []models.ScheduleAssignment{
			{BatchID: "b1", Slot: monday9(), ParticipantIDs: []string{"p1"}},
			{BatchID: "b1", Slot: thursday18(), ParticipantIDs: []string{"p1"}},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batches")).
		WithArgs("b1", "c1", "t1", "ONLINE", nil, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM batch_assignments WHERE batch_id = $1")).
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batch_assignments")).
		WithArgs("b1", 1, 540, 600).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batch_assignments")).
		WithArgs("b1", 4, 1080, 1140).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM batch_participants WHERE batch_id = $1")).
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batch_participants")).
		WithArgs("b1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), batch, 0))
	assert.Equal(t, 1, batch.Version)
	assert.Equal(t, fixed, batch.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositorySaveStaleVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	batch := &models.Batch{ID: "b1", CourseID: "c1", Mode: models.BatchModeOnline, Version: 2}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE batches SET")).
		WithArgs("c1", nil, "ONLINE", nil, sqlmock.AnyArg(), "b1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), batch, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrBatchVersionConflict))
	assert.Equal(t, 2, batch.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM batch_participants WHERE batch_id = $1")).WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM batch_assignments WHERE batch_id = $1")).WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM batches WHERE id = $1")).WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "b1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM batch_participants WHERE batch_id = $1")).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM batch_assignments WHERE batch_id = $1")).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM batches WHERE id = $1")).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
