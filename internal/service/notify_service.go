package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/command"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

type textSender interface {
	SendText(ctx context.Context, to, body string) error
}

type parentLogWriter interface {
	Create(ctx context.Context, log *models.ParentMessageLog) error
}

// NotifyConfig tunes parent broadcasts.
type NotifyConfig struct {
	DefaultThreshold int
	MaxConcurrent    int
}

// NotifyService broadcasts low-attendance notices to parents. Deliveries
// are independent: one failed send never blocks the rest, and every attempt
// leaves an audit row.
type NotifyService struct {
	resolver   classResolver
	students   rosterReader
	counts     attendanceCounter
	sender     textSender
	deliveries parentLogWriter
	cfg        NotifyConfig
	logger     *zap.Logger
}

// NewNotifyService constructs the notification service.
func NewNotifyService(resolver classResolver, students rosterReader, counts attendanceCounter,
	sender textSender, deliveries parentLogWriter, cfg NotifyConfig, logger *zap.Logger) *NotifyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = 75
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	return &NotifyService{
		resolver:   resolver,
		students:   students,
		counts:     counts,
		sender:     sender,
		deliveries: deliveries,
		cfg:        cfg,
		logger:     logger,
	}
}

// Broadcast notifies the parents of every student whose attendance sits
// strictly below the threshold. Returns how many notices went out versus
// how many students qualified.
func (s *NotifyService) Broadcast(ctx context.Context, facultyID string, cmd *command.ParentMessageCommand) (*models.BroadcastTally, error) {
	class, err := s.resolver.ResolveClass(ctx, facultyID, cmd.ClassName)
	if err != nil {
		return nil, err
	}
	roster, err := s.students.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	if len(roster) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class %s has no students yet", class.Name))
	}

	threshold := s.cfg.DefaultThreshold
	if cmd.Percentage != nil {
		threshold = *cmd.Percentage
	}

	targets, err := s.belowThreshold(ctx, roster, threshold)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return &models.BroadcastTally{Sent: 0, Total: 0}, nil
	}

	tally := &models.BroadcastTally{Total: len(targets)}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			sent := s.notifyOne(gctx, class.Name, target, threshold, cmd.Template)
			if sent {
				mu.Lock()
				tally.Sent++
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	s.logger.Info("parent broadcast finished",
		zap.String("class_id", class.ID),
		zap.Int("sent", tally.Sent),
		zap.Int("total", tally.Total))
	return tally, nil
}

func (s *NotifyService) belowThreshold(ctx context.Context, roster []models.Student, threshold int) ([]models.StudentStanding, error) {
	standings := make([]models.StudentStanding, len(roster))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)
	for i, student := range roster {
		i, student := i, student
		g.Go(func() error {
			counts, err := s.counts.CountsForStudent(gctx, student.ID)
			if err != nil {
				return fmt.Errorf("counts for %s: %w", student.RegisterNo, err)
			}
			standings[i] = models.StudentStanding{
				Student:    student,
				Present:    counts.Present,
				Total:      counts.Total,
				Percentage: percentage(counts.Present, counts.Total),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attendance standings")
	}

	var targets []models.StudentStanding
	for _, st := range standings {
		if st.Percentage < threshold {
			targets = append(targets, st)
		}
	}
	return targets, nil
}

// notifyOne sends a single parent notice and records the attempt. Send and
// audit failures are logged, never propagated.
func (s *NotifyService) notifyOne(ctx context.Context, className string, target models.StudentStanding, threshold int, template string) bool {
	body := renderParentMessage(template, className, target, threshold)
	entry := &models.ParentMessageLog{
		StudentID: target.Student.ID,
		Body:      body,
		Status:    models.DeliverySent,
	}

	var sendErr error
	if target.Student.ParentPhone == nil || strings.TrimSpace(*target.Student.ParentPhone) == "" {
		sendErr = fmt.Errorf("no parent phone on file")
	} else {
		entry.Destination = *target.Student.ParentPhone
		sendErr = s.sender.SendText(ctx, entry.Destination, body)
	}
	if sendErr != nil {
		msg := sendErr.Error()
		entry.Status = models.DeliveryFailed
		entry.Error = &msg
		s.logger.Warn("parent notice failed",
			zap.String("student_id", target.Student.ID),
			zap.Error(sendErr))
	}
	if err := s.deliveries.Create(ctx, entry); err != nil {
		s.logger.Error("parent notice audit write failed",
			zap.String("student_id", target.Student.ID),
			zap.Error(err))
	}
	return sendErr == nil
}

func renderParentMessage(template, className string, target models.StudentStanding, threshold int) string {
	if strings.TrimSpace(template) != "" {
		r := strings.NewReplacer(
			"{name}", target.Student.Name,
			"{register_no}", target.Student.RegisterNo,
			"{class}", className,
			"{percentage}", fmt.Sprintf("%d", target.Percentage),
			"{fraction}", fmt.Sprintf("%d/%d", target.Present, target.Total),
		)
		return r.Replace(template)
	}
	return fmt.Sprintf("Dear parent, %s (%s) of %s has %d%% attendance (%d/%d sessions), below the required %d%%. Please ensure regular attendance.",
		target.Student.Name, target.Student.RegisterNo, className, target.Percentage, target.Present, target.Total, threshold)
}
