package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/command"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/llm"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

type stubFacultyResolver struct {
	faculty *models.Faculty
}

func (s *stubFacultyResolver) ResolveFaculty(ctx context.Context, phone string) (*models.Faculty, error) {
	if s.faculty == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorizedSender, "")
	}
	return s.faculty, nil
}

type stubClassifier struct {
	decision *llm.Decision
	lastReq  llm.ClassifyRequest
}

func (s *stubClassifier) Classify(ctx context.Context, req llm.ClassifyRequest) *llm.Decision {
	s.lastReq = req
	return s.decision
}

type stubAttendance struct {
	summary *AttendanceSummary
	err     error
	lastCmd *command.AttendanceCommand
}

func (s *stubAttendance) Create(ctx context.Context, facultyID string, cmd *command.AttendanceCommand) (*AttendanceSummary, error) {
	s.lastCmd = cmd
	return s.summary, s.err
}

func (s *stubAttendance) Edit(ctx context.Context, facultyID string, cmd *command.AttendanceCommand) (*AttendanceSummary, error) {
	s.lastCmd = cmd
	return s.summary, s.err
}

type stubReports struct {
	result *ReportResult
	err    error
}

func (s *stubReports) Standings(ctx context.Context, facultyID string, cmd *command.FetchCommand) (*ReportResult, error) {
	return s.result, s.err
}

type stubNotify struct {
	tally *models.BroadcastTally
	err   error
}

func (s *stubNotify) Broadcast(ctx context.Context, facultyID string, cmd *command.ParentMessageCommand) (*models.BroadcastTally, error) {
	return s.tally, s.err
}

type stubRosterManager struct {
	class   *models.Class
	student *models.Student
	bulk    *BulkImportResult
}

func (s *stubRosterManager) CreateClass(ctx context.Context, facultyID string, cmd *command.CreateClassCommand) (*models.Class, error) {
	return s.class, nil
}

func (s *stubRosterManager) AddStudent(ctx context.Context, facultyID string, cmd *command.AddStudentCommand) (*models.Student, error) {
	return s.student, nil
}

func (s *stubRosterManager) ImportStudents(ctx context.Context, facultyID string, cmd *command.CreateStudentsCommand, attachment *models.Attachment) (*BulkImportResult, error) {
	return s.bulk, nil
}

type stubChatStore struct {
	history  []models.ChatExchange
	appended []models.ChatExchange
}

func (s *stubChatStore) Append(ctx context.Context, exchange *models.ChatExchange) error {
	s.appended = append(s.appended, *exchange)
	return nil
}

func (s *stubChatStore) Recent(ctx context.Context, facultyID string, n int) ([]models.ChatExchange, error) {
	return s.history, nil
}

type stubDedup struct {
	seen map[string]bool
}

func (s *stubDedup) MarkSeen(ctx context.Context, id string) (bool, error) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[id] {
		return false, nil
	}
	s.seen[id] = true
	return true, nil
}

type stubMessageSender struct {
	texts []string
	docs  []string
	to    []string
}

func (s *stubMessageSender) SendText(ctx context.Context, to, body string) error {
	s.to = append(s.to, to)
	s.texts = append(s.texts, body)
	return nil
}

func (s *stubMessageSender) SendDocument(ctx context.Context, to, link, filename, caption string) error {
	s.to = append(s.to, to)
	s.docs = append(s.docs, link)
	return nil
}

type dispatcherFixture struct {
	svc        *DispatcherService
	classifier *stubClassifier
	attendance *stubAttendance
	chat       *stubChatStore
	sender     *stubMessageSender
	dedup      *stubDedup
}

func newDispatcherFixture(decision *llm.Decision) *dispatcherFixture {
	f := &dispatcherFixture{
		classifier: &stubClassifier{decision: decision},
		attendance: &stubAttendance{},
		chat:       &stubChatStore{},
		sender:     &stubMessageSender{},
		dedup:      &stubDedup{},
	}
	f.svc = NewDispatcherService(
		&stubFacultyResolver{faculty: &models.Faculty{ID: "fac-1", Phone: "919999999999"}},
		f.classifier,
		command.NewNormalizer(),
		f.attendance,
		&stubReports{result: &ReportResult{Text: "report"}},
		&stubNotify{tally: &models.BroadcastTally{Sent: 2, Total: 3}},
		&stubRosterManager{class: &models.Class{Name: "CSE-A"}},
		f.chat,
		f.dedup,
		f.sender,
		nil,
		nil,
		nil,
		6,
		zap.NewNop(),
	)
	return f
}

func inbound(text string) models.InboundEvent {
	return models.InboundEvent{SenderHandle: "919999999999", ChannelMessageID: "wamid.1", Text: text}
}

func TestDispatcherMarksAttendanceAndLogsBothSides(t *testing.T) {
	decision := &llm.Decision{
		Route: models.RouteAssignAttendance,
		Data: map[string]interface{}{
			"className": "CSE-A",
			"date":      "2025-12-06",
			"startTime": "9 am",
			"endTime":   "10 am",
			"type":      "absentees",
			"rollNumbers": []interface{}{
				"23B91A0701",
			},
		},
	}
	f := newDispatcherFixture(decision)
	f.attendance.summary = &AttendanceSummary{
		Session:   &models.Session{Date: "2025-12-06", StartTime: "09:00", EndTime: "10:00"},
		ClassName: "CSE-A",
		Present:   2,
		Absent:    1,
	}

	f.svc.HandleEvent(context.Background(), inbound("CSE-A absentees 701 today 9-10"))

	require.NotNil(t, f.attendance.lastCmd)
	assert.Equal(t, "09:00", f.attendance.lastCmd.StartTime)
	require.Len(t, f.sender.texts, 1)
	assert.Contains(t, f.sender.texts[0], "2 present, 1 absent")

	require.Len(t, f.chat.appended, 2)
	assert.Equal(t, models.DirectionIncoming, f.chat.appended[0].Direction)
	assert.Equal(t, models.DirectionOutgoing, f.chat.appended[1].Direction)
	require.NotNil(t, f.chat.appended[1].Route)
	assert.Equal(t, "assignAttendance", *f.chat.appended[1].Route)
}

func TestDispatcherDeniesUnknownSender(t *testing.T) {
	f := newDispatcherFixture(&llm.Decision{Route: models.RouteGeneral, Message: "hi"})
	f.svc.resolver = &stubFacultyResolver{}

	f.svc.HandleEvent(context.Background(), inbound("hello"))
	require.Len(t, f.sender.texts, 1)
	assert.Contains(t, f.sender.texts[0], "not registered")
	assert.Empty(t, f.chat.appended, "no history rows exist for an unknown actor")
}

func TestDispatcherSkipsDuplicateDelivery(t *testing.T) {
	f := newDispatcherFixture(&llm.Decision{Route: models.RouteGeneral, Message: "hi there"})

	f.svc.HandleEvent(context.Background(), inbound("hello"))
	f.svc.HandleEvent(context.Background(), inbound("hello"))

	assert.Len(t, f.sender.texts, 1, "second delivery of the same message id is ignored")
}

func TestDispatcherSendsReportDocument(t *testing.T) {
	f := newDispatcherFixture(&llm.Decision{
		Route: models.RouteAttendanceFetch,
		Data:  map[string]interface{}{"className": "CSE-A", "asDocument": true},
	})
	f.svc.reports = &stubReports{result: &ReportResult{
		Document: &ReportDocument{URL: "https://bot.example.com/reports/download/tok", Filename: "report.pdf", Caption: "Attendance report for CSE-A"},
	}}

	f.svc.HandleEvent(context.Background(), inbound("send attendance for CSE-A as pdf"))

	require.Len(t, f.sender.docs, 1)
	assert.Empty(t, f.sender.texts)
	require.Len(t, f.chat.appended, 2)
	assert.Equal(t, "Attendance report for CSE-A", f.chat.appended[1].Body)
}

func TestDispatcherUserFacingErrorBecomesReply(t *testing.T) {
	f := newDispatcherFixture(&llm.Decision{
		Route: models.RouteAssignAttendance,
		Data: map[string]interface{}{
			"className": "CSE-A",
			"startTime": "9:00",
			"endTime":   "10:00",
			"type":      "absentees",
		},
	})
	f.attendance.err = appErrors.Clone(appErrors.ErrDuplicateSession, "attendance for CSE-A is already marked")

	f.svc.HandleEvent(context.Background(), inbound("CSE-A absentees none today 9-10"))

	require.Len(t, f.sender.texts, 1)
	assert.Equal(t, "attendance for CSE-A is already marked", f.sender.texts[0])
}

func TestDispatcherInternalErrorBecomesApology(t *testing.T) {
	f := newDispatcherFixture(&llm.Decision{
		Route: models.RouteAttendanceFetch,
		Data:  map[string]interface{}{"className": "CSE-A"},
	})
	f.svc.reports = &stubReports{err: appErrors.Wrap(assert.AnError, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "boom")}

	f.svc.HandleEvent(context.Background(), inbound("show attendance for CSE-A"))

	require.Len(t, f.sender.texts, 1)
	assert.Equal(t, apologyMessage, f.sender.texts[0])
}

func TestDispatcherHelpRoute(t *testing.T) {
	f := newDispatcherFixture(&llm.Decision{Route: models.RouteHelp})

	f.svc.HandleEvent(context.Background(), inbound("what can you do"))

	require.Len(t, f.sender.texts, 1)
	assert.Contains(t, f.sender.texts[0], "Mark attendance")
}

func TestDispatcherForwardsHistoryAndAttachmentContext(t *testing.T) {
	f := newDispatcherFixture(&llm.Decision{Route: models.RouteGeneral, Message: "noted"})
	f.chat.history = []models.ChatExchange{
		{Direction: models.DirectionIncoming, Body: "create class CSE-A"},
		{Direction: models.DirectionOutgoing, Body: "Class CSE-A created."},
	}

	event := inbound("add these students to CSE-A")
	event.Attachment = &models.Attachment{Filename: "students.csv", MimeType: "text/csv", MediaID: "media-1"}
	f.svc.HandleEvent(context.Background(), event)

	require.Len(t, f.classifier.lastReq.History, 2)
	assert.Equal(t, "user", f.classifier.lastReq.History[0].Role)
	assert.Equal(t, "assistant", f.classifier.lastReq.History[1].Role)
	assert.Contains(t, f.classifier.lastReq.FileContext, "students.csv")
}

func TestDispatcherPreviewsAttachedSpreadsheet(t *testing.T) {
	f := newDispatcherFixture(&llm.Decision{Route: models.RouteGeneral, Message: "noted"})
	f.svc.media = &mockMediaFetcher{data: []byte("register_no,name\n23B91A0701,Anil")}
	f.svc.decoder = &mockRowDecoder{rows: []map[string]string{
		{"register_no": "23B91A0701", "name": "Anil Kumar"},
		{"register_no": "23B91A0702", "name": "Bhavya Reddy"},
	}}

	event := inbound("upload these students")
	event.Attachment = &models.Attachment{Filename: "students.csv", MimeType: "text/csv", MediaID: "media-1"}
	f.svc.HandleEvent(context.Background(), event)

	assert.Contains(t, f.classifier.lastReq.FileContext, "students.csv")
	assert.Contains(t, f.classifier.lastReq.FileContext, "register_no=23B91A0701")
	assert.Contains(t, f.classifier.lastReq.FileContext, "name=Bhavya Reddy")
}
