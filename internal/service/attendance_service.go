package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/command"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

type sessionRepository interface {
	FindDuplicate(ctx context.Context, classID, date, startTime, endTime string, subjectID *string) (*models.Session, error)
	CreateWithRecords(ctx context.Context, session *models.Session, records []models.AttendanceRecord) error
	RecordsBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error)
	UpdateRecords(ctx context.Context, sessionID string, verdicts map[string]bool) (int, error)
}

type rosterReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type classResolver interface {
	ResolveClass(ctx context.Context, facultyID, className string) (*models.Class, error)
	ResolveOrCreateSubject(ctx context.Context, classID, facultyID, name string) (*models.Subject, error)
}

// AttendanceChange is one proposed flip shown before an edit is confirmed.
type AttendanceChange struct {
	RegisterNo string
	Name       string
	Present    bool
}

// AttendanceSummary reports the outcome of a marking or editing pass.
type AttendanceSummary struct {
	Session           *models.Session
	ClassName         string
	SubjectName       string
	Present           int
	Absent            int
	UnmatchedRolls    []string
	Changes           []AttendanceChange
	Updated           int
	NeedsConfirmation bool
}

// AttendanceService reconciles roll-number lists against the class roster
// and persists attendance sessions.
type AttendanceService struct {
	sessions sessionRepository
	students rosterReader
	resolver classResolver
	logger   *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(sessions sessionRepository, students rosterReader, resolver classResolver, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{sessions: sessions, students: students, resolver: resolver, logger: logger}
}

// Create marks attendance for a new session. The roster is snapshotted once
// and every student on it receives exactly one verdict: listed absentees are
// absent and everyone else present, or the inverse for a presentee list. An
// empty absentee list therefore marks the whole class present, and an empty
// presentee list marks it absent. The session row and all records commit in
// one transaction.
func (s *AttendanceService) Create(ctx context.Context, facultyID string, cmd *command.AttendanceCommand) (*AttendanceSummary, error) {
	class, subject, roster, err := s.prepare(ctx, facultyID, cmd)
	if err != nil {
		return nil, err
	}

	var subjectID *string
	if subject != nil {
		subjectID = &subject.ID
	}
	existing, err := s.sessions.FindDuplicate(ctx, class.ID, cmd.Date, cmd.StartTime, cmd.EndTime, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing sessions")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateSession,
			fmt.Sprintf("attendance for %s on %s %s-%s is already marked; say 'edit attendance' to change it",
				class.Name, cmd.Date, cmd.StartTime, cmd.EndTime))
	}

	verdicts, unmatched := reconcile(roster, cmd.RollNumbers, cmd.Type)
	session := &models.Session{
		ClassID:   class.ID,
		SubjectID: subjectID,
		FacultyID: facultyID,
		Date:      cmd.Date,
		StartTime: cmd.StartTime,
		EndTime:   cmd.EndTime,
	}
	records := make([]models.AttendanceRecord, 0, len(roster))
	present := 0
	for _, student := range roster {
		p := verdicts[student.ID]
		if p {
			present++
		}
		records = append(records, models.AttendanceRecord{StudentID: student.ID, Present: p})
	}

	if err := s.sessions.CreateWithRecords(ctx, session, records); err != nil {
		if appErrors.Is(err, appErrors.ErrDuplicateSession) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateSession,
				fmt.Sprintf("attendance for %s on %s %s-%s is already marked", class.Name, cmd.Date, cmd.StartTime, cmd.EndTime))
		}
		return nil, err
	}
	s.logger.Info("attendance marked",
		zap.String("class_id", class.ID),
		zap.String("session_id", session.ID),
		zap.Int("present", present),
		zap.Int("absent", len(roster)-present))

	summary := &AttendanceSummary{
		Session:        session,
		ClassName:      class.Name,
		Present:        present,
		Absent:         len(roster) - present,
		UnmatchedRolls: unmatched,
	}
	if subject != nil {
		summary.SubjectName = subject.Name
	}
	return summary, nil
}

// Edit changes verdicts on an already marked session. The first call
// computes the flips and asks for confirmation; a confirmed command applies
// them. Students not named keep their existing verdict.
func (s *AttendanceService) Edit(ctx context.Context, facultyID string, cmd *command.AttendanceCommand) (*AttendanceSummary, error) {
	class, subject, roster, err := s.prepare(ctx, facultyID, cmd)
	if err != nil {
		return nil, err
	}

	var subjectID *string
	if subject != nil {
		subjectID = &subject.ID
	}
	session, err := s.sessions.FindDuplicate(ctx, class.ID, cmd.Date, cmd.StartTime, cmd.EndTime, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound,
			fmt.Sprintf("no attendance found for %s on %s %s-%s; mark it first", class.Name, cmd.Date, cmd.StartTime, cmd.EndTime))
	}

	existing, err := s.sessions.RecordsBySession(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance records")
	}
	current := make(map[string]bool, len(existing))
	for _, rec := range existing {
		current[rec.StudentID] = rec.Present
	}

	byID := make(map[string]models.Student, len(roster))
	for _, student := range roster {
		byID[student.ID] = student
	}

	verdicts, unmatched := reconcile(roster, cmd.RollNumbers, cmd.Type)
	flips := make(map[string]bool)
	var changes []AttendanceChange
	for studentID, next := range verdicts {
		prev, known := current[studentID]
		if known && prev == next {
			continue
		}
		// only students explicitly named may flip; unnamed students keep
		// their stored verdict even when the list interpretation differs
		if !namedInList(byID[studentID], cmd.RollNumbers) {
			continue
		}
		flips[studentID] = next
		student := byID[studentID]
		changes = append(changes, AttendanceChange{RegisterNo: student.RegisterNo, Name: student.Name, Present: next})
	}

	summary := &AttendanceSummary{
		Session:        session,
		ClassName:      class.Name,
		UnmatchedRolls: unmatched,
		Changes:        changes,
	}
	if subject != nil {
		summary.SubjectName = subject.Name
	}

	if len(flips) == 0 {
		return summary, nil
	}
	if !cmd.Confirmed {
		summary.NeedsConfirmation = true
		return summary, nil
	}

	updated, err := s.sessions.UpdateRecords(ctx, session.ID, flips)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance records")
	}
	summary.Updated = updated
	s.logger.Info("attendance edited", zap.String("session_id", session.ID), zap.Int("updated", updated))
	return summary, nil
}

func (s *AttendanceService) prepare(ctx context.Context, facultyID string, cmd *command.AttendanceCommand) (*models.Class, *models.Subject, []models.Student, error) {
	class, err := s.resolver.ResolveClass(ctx, facultyID, cmd.ClassName)
	if err != nil {
		return nil, nil, nil, err
	}
	subject, err := s.resolver.ResolveOrCreateSubject(ctx, class.ID, facultyID, cmd.Subject)
	if err != nil {
		return nil, nil, nil, err
	}
	roster, err := s.students.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	if len(roster) == 0 {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class %s has no students yet", class.Name))
	}
	return class, subject, roster, nil
}

// reconcile assigns one verdict per roster student: membership in the roll
// list equals the list's polarity. Roll tokens that match nobody come back
// as unmatched so the user can be told.
func reconcile(roster []models.Student, rolls []string, listType models.ListType) (map[string]bool, []string) {
	listed := make(map[string]bool, len(rolls))
	for _, tok := range rolls {
		if key := models.RollKey(tok); key != "" {
			listed[key] = false
		}
	}

	verdicts := make(map[string]bool, len(roster))
	for _, student := range roster {
		key := student.RollKey()
		_, member := listed[key]
		if member {
			listed[key] = true
		}
		verdicts[student.ID] = member == (listType == models.ListTypePresentees)
	}

	var unmatched []string
	for _, tok := range rolls {
		key := models.RollKey(tok)
		if key == "" {
			continue
		}
		if matched, ok := listed[key]; ok && !matched {
			unmatched = append(unmatched, tok)
			listed[key] = true
		}
	}
	return verdicts, unmatched
}

func namedInList(student models.Student, rolls []string) bool {
	key := student.RollKey()
	for _, tok := range rolls {
		if models.RollKey(tok) == key {
			return true
		}
	}
	return false
}
