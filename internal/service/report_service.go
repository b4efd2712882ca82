package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/command"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/export"
)

type attendanceCounter interface {
	CountsForStudent(ctx context.Context, studentID string) (*models.AttendanceCount, error)
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	DeleteByPrefix(prefix string) ([]string, error)
}

type urlSigner interface {
	Generate(reportID, relPath string) (string, time.Time, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ReportConfig tunes report generation.
type ReportConfig struct {
	Format      string
	PublicBase  string
	MaxParallel int
}

// ReportDocument points at a rendered report ready to be sent as a file.
type ReportDocument struct {
	Filename string
	URL      string
	Caption  string
}

// ReportResult is either an inline text report or a document reference.
type ReportResult struct {
	Text      string
	Document  *ReportDocument
	Standings []models.StudentStanding
}

// ReportService computes per-student attendance standings for a class and
// renders them inline or as a downloadable file.
type ReportService struct {
	resolver classResolver
	students rosterReader
	counts   attendanceCounter
	storage  reportStorage
	signer   urlSigner
	csv      csvRenderer
	pdf      pdfRenderer
	cfg      ReportConfig
	logger   *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(resolver classResolver, students rosterReader, counts attendanceCounter,
	storage reportStorage, signer urlSigner, cfg ReportConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 8
	}
	if cfg.Format == "" {
		cfg.Format = "pdf"
	}
	return &ReportService{
		resolver: resolver,
		students: students,
		counts:   counts,
		storage:  storage,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Standings computes attendance percentages for every student of the class,
// optionally filtered to those strictly below a threshold, sorted worst
// first. A student with no sessions counts as 0%.
func (s *ReportService) Standings(ctx context.Context, facultyID string, cmd *command.FetchCommand) (*ReportResult, error) {
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

	standings, err := s.standingsFor(ctx, roster)
	if err != nil {
		return nil, err
	}

	if cmd.Percentage != nil {
		threshold := *cmd.Percentage
		filtered := standings[:0]
		for _, st := range standings {
			if st.Percentage < threshold {
				filtered = append(filtered, st)
			}
		}
		standings = filtered
	}
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Percentage != standings[j].Percentage {
			return standings[i].Percentage < standings[j].Percentage
		}
		return standings[i].Student.RegisterNo < standings[j].Student.RegisterNo
	})

	result := &ReportResult{Standings: standings}
	if cmd.AsDocument {
		doc, err := s.renderDocument(class, standings, cmd.Percentage)
		if err != nil {
			return nil, err
		}
		result.Document = doc
		return result, nil
	}
	result.Text = formatStandings(class.Name, standings, cmd.Percentage)
	return result, nil
}

// standingsFor fans the per-student count queries out with bounded
// parallelism; one failure cancels the rest.
func (s *ReportService) standingsFor(ctx context.Context, roster []models.Student) ([]models.StudentStanding, error) {
	standings := make([]models.StudentStanding, len(roster))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)
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
	return standings, nil
}

func (s *ReportService) renderDocument(class *models.Class, standings []models.StudentStanding, threshold *int) (*ReportDocument, error) {
	dataset := export.Dataset{
		Headers: []string{"Register No", "Name", "Present", "Total", "Percentage"},
	}
	for _, st := range standings {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Register No": st.Student.RegisterNo,
			"Name":        st.Student.Name,
			"Present":     strconv.Itoa(st.Present),
			"Total":       strconv.Itoa(st.Total),
			"Percentage":  strconv.Itoa(st.Percentage) + "%",
		})
	}

	title := "Attendance Report - " + class.Name
	var payload []byte
	var ext string
	var err error
	switch strings.ToLower(s.cfg.Format) {
	case "csv":
		payload, err = s.csv.Render(dataset)
		ext = "csv"
	default:
		payload, err = s.pdf.Render(dataset, title)
		ext = "pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	prefix := "report_" + class.ID
	if removed, err := s.storage.DeleteByPrefix(prefix); err != nil {
		s.logger.Warn("stale report cleanup failed", zap.Error(err))
	} else if len(removed) > 0 {
		s.logger.Debug("stale reports removed", zap.Int("count", len(removed)))
	}

	filename := fmt.Sprintf("%s_%d.%s", prefix, time.Now().Unix(), ext)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}
	token, _, err := s.signer.Generate(filename, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report link")
	}

	caption := "Attendance report for " + class.Name
	if threshold != nil {
		caption = fmt.Sprintf("Students of %s below %d%%", class.Name, *threshold)
	}
	return &ReportDocument{
		Filename: filename,
		URL:      strings.TrimRight(s.cfg.PublicBase, "/") + "/reports/download/" + token,
		Caption:  caption,
	}, nil
}

// percentage rounds to the nearest whole percent; no sessions means 0.
func percentage(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(present) / float64(total)))
}

func formatStandings(className string, standings []models.StudentStanding, threshold *int) string {
	var b strings.Builder
	if threshold != nil {
		fmt.Fprintf(&b, "Students of %s below %d%%:\n", className, *threshold)
	} else {
		fmt.Fprintf(&b, "Attendance for %s:\n", className)
	}
	if len(standings) == 0 {
		if threshold != nil {
			b.WriteString("Nobody is below the threshold. Well done!")
		} else {
			b.WriteString("No attendance has been marked yet.")
		}
		return b.String()
	}
	for _, st := range standings {
		fmt.Fprintf(&b, "%s %s: %d%% (%d/%d)\n", st.Student.RegisterNo, st.Student.Name, st.Percentage, st.Present, st.Total)
	}
	return strings.TrimRight(b.String(), "\n")
}
