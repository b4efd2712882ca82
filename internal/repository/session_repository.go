package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

// SessionRepository persists sessions and their attendance records. The
// sessions table carries a unique constraint on
// (class_id, date, start_time, end_time, subject_id) so the advisory
// duplicate pre-check is backed by the store.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindDuplicate returns the session occupying the exact slot, if any.
// A nil subjectID matches sessions without a subject.
func (r *SessionRepository) FindDuplicate(ctx context.Context, classID, date, startTime, endTime string, subjectID *string) (*models.Session, error) {
	query := `SELECT id, class_id, subject_id, faculty_id, date, start_time, end_time, created_at
FROM sessions
WHERE class_id = $1 AND date = $2 AND start_time = $3 AND end_time = $4
  AND subject_id IS NOT DISTINCT FROM $5
LIMIT 1`
	var session models.Session
	err := r.db.GetContext(ctx, &session, query, classID, date, startTime, endTime, subjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find duplicate session: %w", err)
	}
	return &session, nil
}

// CreateWithRecords inserts the session and every attendance record in one
// transaction. Any failure rolls the whole unit back, so a session never
// exists with a partial record set. A unique violation on the session slot
// maps to ErrDuplicateSession.
func (r *SessionRepository) CreateWithRecords(ctx context.Context, session *models.Session, records []models.AttendanceRecord) error {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session create: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback() //nolint:errcheck
		}
	}()

	sessionQuery := `INSERT INTO sessions (id, class_id, subject_id, faculty_id, date, start_time, end_time, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, sessionQuery, session.ID, session.ClassID, session.SubjectID,
		session.FacultyID, session.Date, session.StartTime, session.EndTime, session.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateSession, "")
		}
		return fmt.Errorf("insert session: %w", err)
	}

	recordQuery := `INSERT INTO attendance_records (id, session_id, student_id, present, marked_at)
VALUES ($1, $2, $3, $4, $5)`
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.SessionID = session.ID
		if rec.MarkedAt.IsZero() {
			rec.MarkedAt = now
		}
		if _, err := tx.ExecContext(ctx, recordQuery, rec.ID, rec.SessionID, rec.StudentID, rec.Present, rec.MarkedAt); err != nil {
			return appErrors.Wrap(err, appErrors.ErrPartialWrite.Code, appErrors.ErrPartialWrite.Status,
				fmt.Sprintf("insert attendance record for student %s", rec.StudentID))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session create: %w", err)
	}
	commit = true
	return nil
}

// RecordsBySession loads the existing records for a session.
func (r *SessionRepository) RecordsBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	query := `SELECT id, session_id, student_id, present, marked_at
FROM attendance_records WHERE session_id = $1`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, fmt.Errorf("load session records: %w", err)
	}
	return records, nil
}

// UpdateRecords applies new presence verdicts to existing records. Students
// not present in the verdicts map keep their prior value.
func (r *SessionRepository) UpdateRecords(ctx context.Context, sessionID string, verdicts map[string]bool) (int, error) {
	if len(verdicts) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin record update: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback() //nolint:errcheck
		}
	}()

	query := `UPDATE attendance_records SET present = $1, marked_at = $2
WHERE session_id = $3 AND student_id = $4`
	now := time.Now().UTC()
	updated := 0
	for studentID, present := range verdicts {
		res, err := tx.ExecContext(ctx, query, present, now, sessionID, studentID)
		if err != nil {
			return 0, fmt.Errorf("update attendance record: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			updated += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit record update: %w", err)
	}
	commit = true
	return updated, nil
}

// CountsForStudent aggregates one student's presence over all their sessions.
func (r *SessionRepository) CountsForStudent(ctx context.Context, studentID string) (*models.AttendanceCount, error) {
	query := `SELECT COUNT(*) FILTER (WHERE present) AS present, COUNT(*) AS total
FROM attendance_records WHERE student_id = $1`
	var row struct {
		Present int `db:"present"`
		Total   int `db:"total"`
	}
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return nil, fmt.Errorf("count attendance: %w", err)
	}
	return &models.AttendanceCount{StudentID: studentID, Present: row.Present, Total: row.Total}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
