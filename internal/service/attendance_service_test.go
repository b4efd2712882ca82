package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/command"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

type mockResolver struct {
	class   *models.Class
	subject *models.Subject
	err     error
}

func (m *mockResolver) ResolveClass(ctx context.Context, facultyID, className string) (*models.Class, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.class, nil
}

func (m *mockResolver) ResolveOrCreateSubject(ctx context.Context, classID, facultyID, name string) (*models.Subject, error) {
	if name == "" {
		return nil, nil
	}
	if m.subject != nil {
		return m.subject, nil
	}
	return &models.Subject{ID: "subj-1", ClassID: classID, FacultyID: facultyID, Name: name}, nil
}

type mockRoster struct {
	students []models.Student
	err      error
}

func (m *mockRoster) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	return m.students, m.err
}

type mockSessions struct {
	existing    *models.Session
	records     []models.AttendanceRecord
	created     *models.Session
	createdRecs []models.AttendanceRecord
	verdicts    map[string]bool
	createErr   error
}

func (m *mockSessions) FindDuplicate(ctx context.Context, classID, date, startTime, endTime string, subjectID *string) (*models.Session, error) {
	return m.existing, nil
}

func (m *mockSessions) CreateWithRecords(ctx context.Context, session *models.Session, records []models.AttendanceRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	session.ID = "sess-1"
	m.created = session
	m.createdRecs = records
	return nil
}

func (m *mockSessions) RecordsBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	return m.records, nil
}

func (m *mockSessions) UpdateRecords(ctx context.Context, sessionID string, verdicts map[string]bool) (int, error) {
	m.verdicts = verdicts
	return len(verdicts), nil
}

func threeStudents() []models.Student {
	return []models.Student{
		{ID: "stu-1", ClassID: "class-1", RegisterNo: "23B91A0701", Name: "Anil"},
		{ID: "stu-2", ClassID: "class-1", RegisterNo: "23B91A0702", Name: "Bhanu"},
		{ID: "stu-3", ClassID: "class-1", RegisterNo: "23B91A0703", Name: "Charan"},
	}
}

func attendanceCmd(listType models.ListType, rolls ...string) *command.AttendanceCommand {
	return &command.AttendanceCommand{
		ClassName:   "CSE-A",
		Date:        "2025-12-06",
		StartTime:   "09:00",
		EndTime:     "10:00",
		Type:        listType,
		RollNumbers: rolls,
	}
}

func TestAttendanceCreateAbsenteeList(t *testing.T) {
	sessions := &mockSessions{}
	svc := NewAttendanceService(sessions,
		&mockRoster{students: threeStudents()},
		&mockResolver{class: &models.Class{ID: "class-1", Name: "CSE-A"}},
		zap.NewNop())

	summary, err := svc.Create(context.Background(), "fac-1", attendanceCmd(models.ListTypeAbsentees, "701"))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Present)
	assert.Equal(t, 1, summary.Absent)
	assert.Empty(t, summary.UnmatchedRolls)
	require.Len(t, sessions.createdRecs, 3)

	byStudent := map[string]bool{}
	for _, rec := range sessions.createdRecs {
		byStudent[rec.StudentID] = rec.Present
	}
	assert.False(t, byStudent["stu-1"])
	assert.True(t, byStudent["stu-2"])
	assert.True(t, byStudent["stu-3"])
}

func TestAttendanceCreateEmptyAbsenteesMeansAllPresent(t *testing.T) {
	sessions := &mockSessions{}
	svc := NewAttendanceService(sessions,
		&mockRoster{students: threeStudents()},
		&mockResolver{class: &models.Class{ID: "class-1", Name: "CSE-A"}},
		zap.NewNop())

	summary, err := svc.Create(context.Background(), "fac-1", attendanceCmd(models.ListTypeAbsentees))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Present)
	assert.Equal(t, 0, summary.Absent)
}

func TestAttendanceCreateEmptyPresenteesMeansAllAbsent(t *testing.T) {
	sessions := &mockSessions{}
	svc := NewAttendanceService(sessions,
		&mockRoster{students: threeStudents()},
		&mockResolver{class: &models.Class{ID: "class-1", Name: "CSE-A"}},
		zap.NewNop())

	summary, err := svc.Create(context.Background(), "fac-1", attendanceCmd(models.ListTypePresentees))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Present)
	assert.Equal(t, 3, summary.Absent)
}

func TestAttendanceCreateReportsUnmatchedRolls(t *testing.T) {
	sessions := &mockSessions{}
	svc := NewAttendanceService(sessions,
		&mockRoster{students: threeStudents()},
		&mockResolver{class: &models.Class{ID: "class-1", Name: "CSE-A"}},
		zap.NewNop())

	summary, err := svc.Create(context.Background(), "fac-1", attendanceCmd(models.ListTypeAbsentees, "702", "99"))
	require.NoError(t, err)
	assert.Equal(t, []string{"99"}, summary.UnmatchedRolls)
	assert.Equal(t, 1, summary.Absent)
}

func TestAttendanceCreateRejectsDuplicateSlot(t *testing.T) {
	sessions := &mockSessions{existing: &models.Session{ID: "sess-0"}}
	svc := NewAttendanceService(sessions,
		&mockRoster{students: threeStudents()},
		&mockResolver{class: &models.Class{ID: "class-1", Name: "CSE-A"}},
		zap.NewNop())

	_, err := svc.Create(context.Background(), "fac-1", attendanceCmd(models.ListTypeAbsentees, "701"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateSession))
	assert.Nil(t, sessions.created)
}

func TestAttendanceCreateRejectsEmptyRoster(t *testing.T) {
	svc := NewAttendanceService(&mockSessions{},
		&mockRoster{},
		&mockResolver{class: &models.Class{ID: "class-1", Name: "CSE-A"}},
		zap.NewNop())

	_, err := svc.Create(context.Background(), "fac-1", attendanceCmd(models.ListTypeAbsentees, "701"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceEditAsksForConfirmation(t *testing.T) {
	sessions := &mockSessions{
		existing: &models.Session{ID: "sess-1", Date: "2025-12-06", StartTime: "09:00", EndTime: "10:00"},
		records: []models.AttendanceRecord{
			{StudentID: "stu-1", Present: false},
			{StudentID: "stu-2", Present: true},
			{StudentID: "stu-3", Present: true},
		},
	}
	svc := NewAttendanceService(sessions,
		&mockRoster{students: threeStudents()},
		&mockResolver{class: &models.Class{ID: "class-1", Name: "CSE-A"}},
		zap.NewNop())

	cmd := attendanceCmd(models.ListTypePresentees, "701")
	summary, err := svc.Edit(context.Background(), "fac-1", cmd)
	require.NoError(t, err)
	assert.True(t, summary.NeedsConfirmation)
	require.Len(t, summary.Changes, 1)
	assert.Equal(t, "23B91A0701", summary.Changes[0].RegisterNo)
	assert.True(t, summary.Changes[0].Present)
	assert.Nil(t, sessions.verdicts, "nothing may be written before confirmation")
}

func TestAttendanceEditConfirmedAppliesFlips(t *testing.T) {
	sessions := &mockSessions{
		existing: &models.Session{ID: "sess-1", Date: "2025-12-06", StartTime: "09:00", EndTime: "10:00"},
		records: []models.AttendanceRecord{
			{StudentID: "stu-1", Present: false},
			{StudentID: "stu-2", Present: true},
			{StudentID: "stu-3", Present: true},
		},
	}
	svc := NewAttendanceService(sessions,
		&mockRoster{students: threeStudents()},
		&mockResolver{class: &models.Class{ID: "class-1", Name: "CSE-A"}},
		zap.NewNop())

	cmd := attendanceCmd(models.ListTypePresentees, "701")
	cmd.Confirmed = true
	summary, err := svc.Edit(context.Background(), "fac-1", cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, map[string]bool{"stu-1": true}, sessions.verdicts)
}

func TestAttendanceEditLeavesUnnamedStudentsAlone(t *testing.T) {
	sessions := &mockSessions{
		existing: &models.Session{ID: "sess-1", Date: "2025-12-06", StartTime: "09:00", EndTime: "10:00"},
		records: []models.AttendanceRecord{
			{StudentID: "stu-1", Present: true},
			{StudentID: "stu-2", Present: false},
			{StudentID: "stu-3", Present: true},
		},
	}
	svc := NewAttendanceService(sessions,
		&mockRoster{students: threeStudents()},
		&mockResolver{class: &models.Class{ID: "class-1", Name: "CSE-A"}},
		zap.NewNop())

	// naming only roll 703 as absent must not touch stu-1 or stu-2
	cmd := attendanceCmd(models.ListTypeAbsentees, "703")
	cmd.Confirmed = true
	_, err := svc.Edit(context.Background(), "fac-1", cmd)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"stu-3": false}, sessions.verdicts)
}

func TestAttendanceEditUnknownSession(t *testing.T) {
	svc := NewAttendanceService(&mockSessions{},
		&mockRoster{students: threeStudents()},
		&mockResolver{class: &models.Class{ID: "class-1", Name: "CSE-A"}},
		zap.NewNop())

	_, err := svc.Edit(context.Background(), "fac-1", attendanceCmd(models.ListTypeAbsentees, "701"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
