package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryFindDuplicateNone(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT id, class_id, subject_id, faculty_id, date, start_time, end_time, created_at").
		WithArgs("class-1", "2025-12-06", "09:00", "10:00", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	session, err := repo.FindDuplicate(context.Background(), "class-1", "2025-12-06", "09:00", "10:00", nil)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindDuplicateHit(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	subjectID := "subj-1"
	rows := sqlmock.NewRows([]string{"id", "class_id", "subject_id", "faculty_id", "date", "start_time", "end_time", "created_at"}).
		AddRow("sess-1", "class-1", subjectID, "fac-1", "2025-12-06", "09:00", "10:00", time.Now())
	mock.ExpectQuery("SELECT id, class_id, subject_id, faculty_id, date, start_time, end_time, created_at").
		WithArgs("class-1", "2025-12-06", "09:00", "10:00", subjectID).
		WillReturnRows(rows)

	session, err := repo.FindDuplicate(context.Background(), "class-1", "2025-12-06", "09:00", "10:00", &subjectID)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "sess-1", session.ID)
}

func TestSessionRepositoryCreateWithRecords(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), "class-1", nil, "fac-1", "2025-12-06", "09:00", "10:00", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i := 0; i < 3; i++ {
		mock.ExpectExec("INSERT INTO attendance_records").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	session := &models.Session{ClassID: "class-1", FacultyID: "fac-1", Date: "2025-12-06", StartTime: "09:00", EndTime: "10:00"}
	records := []models.AttendanceRecord{
		{StudentID: "stu-1", Present: false},
		{StudentID: "stu-2", Present: true},
		{StudentID: "stu-3", Present: true},
	}
	err := repo.CreateWithRecords(context.Background(), session, records)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	for _, rec := range records {
		assert.Equal(t, session.ID, rec.SessionID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateRollsBackOnRecordFailure(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), "class-1", nil, "fac-1", "2025-12-06", "09:00", "10:00", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_records").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	session := &models.Session{ClassID: "class-1", FacultyID: "fac-1", Date: "2025-12-06", StartTime: "09:00", EndTime: "10:00"}
	err := repo.CreateWithRecords(context.Background(), session, []models.AttendanceRecord{{StudentID: "stu-1"}})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPartialWrite))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateRecords(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attendance_records").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "sess-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateRecords(context.Background(), "sess-1", map[string]bool{"stu-1": true})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCountsForStudent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FILTER \(WHERE present\) AS present, COUNT\(\*\) AS total`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"present", "total"}).AddRow(7, 10))

	counts, err := repo.CountsForStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 7, counts.Present)
	assert.Equal(t, 10, counts.Total)
}
