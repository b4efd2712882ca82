package models

import "time"

// Session represents one class meeting eligible for exactly one attendance
// pass. Date is canonical YYYY-MM-DD; times are 24-hour HH:MM. At most one
// session may exist per (class, date, start, end, subject) tuple.
type Session struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID *string   `db:"subject_id" json:"subject_id,omitempty"`
	FacultyID string    `db:"faculty_id" json:"faculty_id"`
	Date      string    `db:"date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AttendanceRecord holds one presence verdict per (session, student) pair.
type AttendanceRecord struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Present   bool      `db:"present" json:"present"`
	MarkedAt  time.Time `db:"marked_at" json:"marked_at"`
}

// AttendanceCount aggregates a single student's presence over all sessions.
type AttendanceCount struct {
	StudentID string `db:"student_id" json:"student_id"`
	Present   int    `db:"present" json:"present"`
	Total     int    `db:"total" json:"total"`
}

// StudentStanding is a report row: a student with their computed percentage.
type StudentStanding struct {
	Student    Student `json:"student"`
	Present    int     `json:"present"`
	Total      int     `json:"total"`
	Percentage int     `json:"percentage"`
}
