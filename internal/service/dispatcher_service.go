package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/command"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/llm"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

type intentClassifier interface {
	Classify(ctx context.Context, req llm.ClassifyRequest) *llm.Decision
}

type facultyResolver interface {
	ResolveFaculty(ctx context.Context, phone string) (*models.Faculty, error)
}

type attendanceMarker interface {
	Create(ctx context.Context, facultyID string, cmd *command.AttendanceCommand) (*AttendanceSummary, error)
	Edit(ctx context.Context, facultyID string, cmd *command.AttendanceCommand) (*AttendanceSummary, error)
}

type reportBuilder interface {
	Standings(ctx context.Context, facultyID string, cmd *command.FetchCommand) (*ReportResult, error)
}

type parentNotifier interface {
	Broadcast(ctx context.Context, facultyID string, cmd *command.ParentMessageCommand) (*models.BroadcastTally, error)
}

type rosterManager interface {
	CreateClass(ctx context.Context, facultyID string, cmd *command.CreateClassCommand) (*models.Class, error)
	AddStudent(ctx context.Context, facultyID string, cmd *command.AddStudentCommand) (*models.Student, error)
	ImportStudents(ctx context.Context, facultyID string, cmd *command.CreateStudentsCommand, attachment *models.Attachment) (*BulkImportResult, error)
}

type chatStore interface {
	Append(ctx context.Context, exchange *models.ChatExchange) error
	Recent(ctx context.Context, facultyID string, n int) ([]models.ChatExchange, error)
}

type dedupStore interface {
	MarkSeen(ctx context.Context, channelMessageID string) (bool, error)
}

type messageSender interface {
	SendText(ctx context.Context, to, body string) error
	SendDocument(ctx context.Context, to, link, filename, caption string) error
}

type turnMetrics interface {
	CountRoute(route, outcome string)
	CountSend(kind, result string)
	ObserveTurn(duration time.Duration)
}

const apologyMessage = "Something went wrong on my side while handling that. Please try again."

const deniedMessage = "Sorry, this number is not registered as a faculty account, so I cannot help you here."

const helpMessage = `Here is what I can do:
- Create a class: "create class CSE-A"
- Add a student: "add student 23B91A0701 Anil to CSE-A"
- Register many students: send a CSV file with "add these students to CSE-A"
- Mark attendance: "CSE-A absentees 1,5,12 today 9am to 10am"
- Edit attendance: "change roll 5 to present for today's 9am session"
- Attendance report: "show attendance for CSE-A below 75%"
- Notify parents: "message parents of CSE-A students below 65%"`

// DispatcherService drives one inbound message through the full turn:
// sender authorization, duplicate suppression, classification,
// normalization, execution and the outbound reply, logging both sides of
// the exchange.
type DispatcherService struct {
	resolver   facultyResolver
	classifier intentClassifier
	normalizer *command.Normalizer
	attendance attendanceMarker
	reports    reportBuilder
	notify     parentNotifier
	roster     rosterManager
	chat       chatStore
	dedup      dedupStore
	sender     messageSender
	media      mediaFetcher
	decoder    rowDecoder
	metrics    turnMetrics
	maxTurns   int
	logger     *zap.Logger
}

// NewDispatcherService wires the turn pipeline.
func NewDispatcherService(resolver facultyResolver, classifier intentClassifier, normalizer *command.Normalizer,
	attendance attendanceMarker, reports reportBuilder, notify parentNotifier, roster rosterManager,
	chat chatStore, dedup dedupStore, sender messageSender, media mediaFetcher, decoder rowDecoder,
	metrics turnMetrics, maxTurns int, logger *zap.Logger) *DispatcherService {
	if normalizer == nil {
		normalizer = command.NewNormalizer()
	}
	if maxTurns <= 0 {
		maxTurns = 6
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatcherService{
		resolver:   resolver,
		classifier: classifier,
		normalizer: normalizer,
		attendance: attendance,
		reports:    reports,
		notify:     notify,
		roster:     roster,
		chat:       chat,
		dedup:      dedup,
		sender:     sender,
		media:      media,
		decoder:    decoder,
		metrics:    metrics,
		maxTurns:   maxTurns,
		logger:     logger,
	}
}

// HandleEvent processes one inbound message end to end. It never returns an
// error to the webhook path: failures turn into an apology reply and a log
// line, and a panic anywhere in the turn is contained the same way.
func (s *DispatcherService) HandleEvent(ctx context.Context, event models.InboundEvent) {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveTurn(time.Since(started))
		}
	}()

	faculty, err := s.resolver.ResolveFaculty(ctx, event.SenderHandle)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrUnauthorizedSender) {
			// fixed denial, and no chat history row since no actor exists
			s.logger.Info("message from unregistered sender denied", zap.String("sender", event.SenderHandle))
			if sendErr := s.sender.SendText(ctx, event.SenderHandle, deniedMessage); sendErr != nil {
				s.logger.Warn("denial send failed", zap.Error(sendErr))
			}
			s.countRoute("", "unauthorized")
			return
		}
		s.logger.Error("sender resolution failed", zap.Error(err))
		return
	}

	if event.ChannelMessageID != "" {
		first, err := s.dedup.MarkSeen(ctx, event.ChannelMessageID)
		if err != nil {
			s.logger.Warn("dedup check failed, processing anyway", zap.Error(err))
		} else if !first {
			s.logger.Debug("duplicate delivery skipped", zap.String("message_id", event.ChannelMessageID))
			s.countRoute("", "duplicate")
			return
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("turn panicked", zap.Any("panic", r), zap.String("faculty_id", faculty.ID))
			s.reply(ctx, faculty, apologyMessage, nil, nil)
			s.countRoute("", "panic")
		}
	}()

	history := s.loadHistory(ctx, faculty.ID)

	req := llm.ClassifyRequest{Message: event.Text, History: history}
	if event.Attachment != nil {
		req.FileContext = s.buildFileContext(ctx, event.Attachment)
	}
	decision := s.classifier.Classify(ctx, req)

	route := string(decision.Route)
	s.logIncoming(ctx, faculty.ID, event, route)

	reply, document := s.execute(ctx, faculty, event, decision)
	s.reply(ctx, faculty, reply, document, decision)
}

// execute maps the classified route onto the domain services and builds the
// outbound reply.
func (s *DispatcherService) execute(ctx context.Context, faculty *models.Faculty, event models.InboundEvent, decision *llm.Decision) (string, *ReportDocument) {
	route := string(decision.Route)
	switch decision.Route {
	case models.RouteAssignAttendance:
		cmd, err := s.normalizer.Attendance(decision.Data)
		if err != nil {
			return s.failure(route, err), nil
		}
		summary, err := s.attendance.Create(ctx, faculty.ID, cmd)
		if err != nil {
			return s.failure(route, err), nil
		}
		s.countRoute(route, "ok")
		return formatMarkSummary(summary), nil

	case models.RouteEditAttendance:
		cmd, err := s.normalizer.Attendance(decision.Data)
		if err != nil {
			return s.failure(route, err), nil
		}
		summary, err := s.attendance.Edit(ctx, faculty.ID, cmd)
		if err != nil {
			return s.failure(route, err), nil
		}
		s.countRoute(route, "ok")
		return formatEditSummary(summary), nil

	case models.RouteAttendanceFetch:
		cmd, err := s.normalizer.Fetch(decision.Data, event.Text)
		if err != nil {
			return s.failure(route, err), nil
		}
		result, err := s.reports.Standings(ctx, faculty.ID, cmd)
		if err != nil {
			return s.failure(route, err), nil
		}
		s.countRoute(route, "ok")
		if result.Document != nil {
			return "", result.Document
		}
		return result.Text, nil

	case models.RouteParentMessage:
		cmd, err := s.normalizer.ParentMessage(decision.Data, event.Text)
		if err != nil {
			return s.failure(route, err), nil
		}
		tally, err := s.notify.Broadcast(ctx, faculty.ID, cmd)
		if err != nil {
			return s.failure(route, err), nil
		}
		s.countRoute(route, "ok")
		if tally.Total == 0 {
			return "No students are below the threshold, so no parents were messaged.", nil
		}
		return fmt.Sprintf("Notified %d of %d parents.", tally.Sent, tally.Total), nil

	case models.RouteCreateClass:
		cmd, err := s.normalizer.CreateClass(decision.Data)
		if err != nil {
			return s.failure(route, err), nil
		}
		class, err := s.roster.CreateClass(ctx, faculty.ID, cmd)
		if err != nil {
			return s.failure(route, err), nil
		}
		s.countRoute(route, "ok")
		return fmt.Sprintf("Class %s created. Add students with 'add student <register no> <name> to %s' or send a CSV file.", class.Name, class.Name), nil

	case models.RouteAddStudent:
		cmd, err := s.normalizer.AddStudent(decision.Data)
		if err != nil {
			return s.failure(route, err), nil
		}
		student, err := s.roster.AddStudent(ctx, faculty.ID, cmd)
		if err != nil {
			return s.failure(route, err), nil
		}
		s.countRoute(route, "ok")
		return fmt.Sprintf("Added %s (%s).", student.Name, student.RegisterNo), nil

	case models.RouteCreateStudents:
		cmd, err := s.normalizer.CreateStudents(decision.Data)
		if err != nil {
			return s.failure(route, err), nil
		}
		result, err := s.roster.ImportStudents(ctx, faculty.ID, cmd, event.Attachment)
		if err != nil {
			return s.failure(route, err), nil
		}
		s.countRoute(route, "ok")
		return formatImportSummary(result), nil

	case models.RouteHelp:
		s.countRoute(route, "ok")
		return helpMessage, nil

	case models.RouteAskClassName, models.RouteAskStudentData, models.RouteClarify, models.RouteGeneral:
		s.countRoute(route, "ok")
		if strings.TrimSpace(decision.Message) == "" {
			return helpMessage, nil
		}
		return decision.Message, nil

	default:
		s.countRoute(route, "unknown")
		return helpMessage, nil
	}
}

func (s *DispatcherService) failure(route string, err error) string {
	appErr := appErrors.FromError(err)
	s.countRoute(route, "error")
	s.logger.Warn("route execution failed", zap.String("route", route), zap.Error(err))
	if appErr.Code == appErrors.ErrInternal.Code {
		return apologyMessage
	}
	return appErr.Message
}

// buildFileContext fetches an attached spreadsheet and condenses its first
// rows into plain text so the classifier can read the column layout. Fetch or
// parse failures degrade to the bare filename tag.
func (s *DispatcherService) buildFileContext(ctx context.Context, att *models.Attachment) string {
	tag := fmt.Sprintf("[attached file: %s (%s)]", att.Filename, att.MimeType)
	if s.media == nil || s.decoder == nil || att.MediaID == "" {
		return tag
	}
	data, err := s.media.FetchMedia(ctx, att.MediaID)
	if err != nil {
		s.logger.Warn("attachment fetch failed, classifying with filename only", zap.Error(err))
		return tag
	}
	rows, err := s.decoder.Parse(data)
	if err != nil || len(rows) == 0 {
		return tag
	}
	const previewRows = 5
	var b strings.Builder
	b.WriteString(tag)
	for i, row := range rows {
		if i == previewRows {
			fmt.Fprintf(&b, "\n... and %d more rows", len(rows)-previewRows)
			break
		}
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n")
		for j, k := range keys {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, row[k])
		}
	}
	return b.String()
}

func (s *DispatcherService) loadHistory(ctx context.Context, facultyID string) []models.HistoryTurn {
	exchanges, err := s.chat.Recent(ctx, facultyID, s.maxTurns)
	if err != nil {
		s.logger.Warn("history load failed, classifying without context", zap.Error(err))
		return nil
	}
	turns := make([]models.HistoryTurn, 0, len(exchanges))
	for _, ex := range exchanges {
		role := "user"
		if ex.Direction == models.DirectionOutgoing {
			role = "assistant"
		}
		turns = append(turns, models.HistoryTurn{Role: role, Content: ex.Body})
	}
	return turns
}

func (s *DispatcherService) logIncoming(ctx context.Context, facultyID string, event models.InboundEvent, route string) {
	exchange := &models.ChatExchange{
		FacultyID: facultyID,
		Direction: models.DirectionIncoming,
		Body:      event.Text,
		Route:     &route,
	}
	if event.ChannelMessageID != "" {
		id := event.ChannelMessageID
		exchange.ChannelMessageID = &id
	}
	if err := s.chat.Append(ctx, exchange); err != nil {
		s.logger.Warn("incoming exchange log failed", zap.Error(err))
	}
}

// reply sends the outbound message and appends it to the chat log.
func (s *DispatcherService) reply(ctx context.Context, faculty *models.Faculty, body string, document *ReportDocument, decision *llm.Decision) {
	var sendErr error
	logged := body
	if document != nil {
		sendErr = s.sender.SendDocument(ctx, faculty.Phone, document.URL, document.Filename, document.Caption)
		logged = document.Caption
		s.countSend("document", sendErr)
	} else {
		if strings.TrimSpace(body) == "" {
			return
		}
		sendErr = s.sender.SendText(ctx, faculty.Phone, body)
		s.countSend("text", sendErr)
	}
	if sendErr != nil {
		s.logger.Error("outbound send failed", zap.String("faculty_id", faculty.ID), zap.Error(sendErr))
		return
	}

	exchange := &models.ChatExchange{
		FacultyID: faculty.ID,
		Direction: models.DirectionOutgoing,
		Body:      logged,
	}
	if decision != nil {
		route := string(decision.Route)
		exchange.Route = &route
		if raw, err := json.Marshal(decision); err == nil {
			exchange.Decision = raw
		}
	}
	if err := s.chat.Append(ctx, exchange); err != nil {
		s.logger.Warn("outgoing exchange log failed", zap.Error(err))
	}
}

func (s *DispatcherService) countRoute(route, outcome string) {
	if s.metrics == nil {
		return
	}
	if route == "" {
		route = "none"
	}
	s.metrics.CountRoute(route, outcome)
}

func (s *DispatcherService) countSend(kind string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.CountSend(kind, result)
}

func formatMarkSummary(summary *AttendanceSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attendance marked for %s on %s %s-%s", summary.ClassName,
		summary.Session.Date, summary.Session.StartTime, summary.Session.EndTime)
	if summary.SubjectName != "" {
		fmt.Fprintf(&b, " (%s)", summary.SubjectName)
	}
	fmt.Fprintf(&b, ": %d present, %d absent.", summary.Present, summary.Absent)
	if len(summary.UnmatchedRolls) > 0 {
		fmt.Fprintf(&b, "\nNote: no student matched roll %s.", strings.Join(summary.UnmatchedRolls, ", "))
	}
	return b.String()
}

func formatEditSummary(summary *AttendanceSummary) string {
	if len(summary.Changes) == 0 {
		return "Nothing to change; attendance already matches what you said."
	}
	var b strings.Builder
	if summary.NeedsConfirmation {
		b.WriteString("This will change:\n")
	} else {
		fmt.Fprintf(&b, "Updated %d record(s):\n", summary.Updated)
	}
	for _, change := range summary.Changes {
		verdict := "absent"
		if change.Present {
			verdict = "present"
		}
		fmt.Fprintf(&b, "- %s %s -> %s\n", change.RegisterNo, change.Name, verdict)
	}
	if summary.NeedsConfirmation {
		b.WriteString("Reply 'yes, confirm' to apply.")
		return b.String()
	}
	if len(summary.UnmatchedRolls) > 0 {
		fmt.Fprintf(&b, "Note: no student matched roll %s.", strings.Join(summary.UnmatchedRolls, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatImportSummary(result *BulkImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Added %d student(s) to %s.", result.Added, result.ClassName)
	if len(result.Skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped %d row(s):\n- %s", len(result.Skipped), strings.Join(result.Skipped, "\n- "))
	}
	return b.String()
}
