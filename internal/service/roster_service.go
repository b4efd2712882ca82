package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/command"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

type classWriter interface {
	ExistsByName(ctx context.Context, facultyID, name string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
}

type studentWriter interface {
	ExistsByRegisterNo(ctx context.Context, classID, registerNo string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	BulkInsert(ctx context.Context, students []models.Student) error
}

type rowDecoder interface {
	Parse(data []byte) ([]map[string]string, error)
}

type mediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID string) ([]byte, error)
}

type newStudentRow struct {
	RegisterNo  string `validate:"required"`
	Name        string `validate:"required"`
	Phone       string `validate:"omitempty,min=7"`
	ParentPhone string `validate:"omitempty,min=7"`
}

// BulkImportResult summarises a spreadsheet import.
type BulkImportResult struct {
	ClassName string
	Added     int
	Skipped   []string
}

// RosterService manages classes and their student rosters.
type RosterService struct {
	resolver  classResolver
	classes   classWriter
	students  studentWriter
	decoder   rowDecoder
	media     mediaFetcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs the roster service.
func NewRosterService(resolver classResolver, classes classWriter, students studentWriter,
	decoder rowDecoder, media mediaFetcher, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		resolver:  resolver,
		classes:   classes,
		students:  students,
		decoder:   decoder,
		media:     media,
		validator: validate,
		logger:    logger,
	}
}

// CreateClass registers a new class for the faculty.
func (s *RosterService) CreateClass(ctx context.Context, facultyID string, cmd *command.CreateClassCommand) (*models.Class, error) {
	name := strings.TrimSpace(cmd.ClassName)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class name is required")
	}
	exists, err := s.classes.ExistsByName(ctx, facultyID, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("you already have a class named %s", name))
	}
	class := &models.Class{FacultyID: facultyID, Name: name}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("name", name))
	return class, nil
}

// AddStudent registers one student into an existing class.
func (s *RosterService) AddStudent(ctx context.Context, facultyID string, cmd *command.AddStudentCommand) (*models.Student, error) {
	class, err := s.resolver.ResolveClass(ctx, facultyID, cmd.ClassName)
	if err != nil {
		return nil, err
	}
	row := newStudentRow{
		RegisterNo:  strings.TrimSpace(cmd.RegisterNo),
		Name:        strings.TrimSpace(cmd.Name),
		Phone:       strings.TrimSpace(cmd.Phone),
		ParentPhone: strings.TrimSpace(cmd.ParentPhone),
	}
	if err := s.validator.Struct(row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "register number and name are required")
	}
	exists, err := s.students.ExistsByRegisterNo(ctx, class.ID, row.RegisterNo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check register number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("register number %s already exists in %s", row.RegisterNo, class.Name))
	}

	student := &models.Student{ClassID: class.ID, RegisterNo: row.RegisterNo, Name: row.Name}
	if row.Phone != "" {
		student.Phone = &row.Phone
	}
	if row.ParentPhone != "" {
		student.ParentPhone = &row.ParentPhone
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add student")
	}
	s.logger.Info("student added", zap.String("class_id", class.ID), zap.String("register_no", row.RegisterNo))
	return student, nil
}

// ImportStudents bulk-registers students from an uploaded spreadsheet.
// Rows that fail validation or duplicate an existing register number are
// skipped and reported; valid rows are inserted in one transaction.
func (s *RosterService) ImportStudents(ctx context.Context, facultyID string, cmd *command.CreateStudentsCommand, attachment *models.Attachment) (*BulkImportResult, error) {
	if attachment == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "please attach the student list as a CSV file")
	}
	class, err := s.resolver.ResolveClass(ctx, facultyID, cmd.ClassName)
	if err != nil {
		return nil, err
	}

	data, err := s.media.FetchMedia(ctx, attachment.MediaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to download the attached file")
	}
	rows, err := s.decoder.Parse(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "could not read the attached file as a student list")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the attached file has no student rows")
	}

	result := &BulkImportResult{ClassName: class.Name}
	var batch []models.Student
	seen := make(map[string]bool)
	for i, raw := range rows {
		row := newStudentRow{
			RegisterNo:  pick(raw, "register_no", "registernumber", "register_number", "roll_no", "roll_number"),
			Name:        pick(raw, "name", "student_name", "full_name"),
			Phone:       pick(raw, "phone", "student_phone", "mobile"),
			ParentPhone: pick(raw, "parent_phone", "parent_mobile", "guardian_phone"),
		}
		if err := s.validator.Struct(row); err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d: missing register number or name", i+1))
			continue
		}
		if seen[row.RegisterNo] {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d: duplicate register number %s", i+1, row.RegisterNo))
			continue
		}
		exists, err := s.students.ExistsByRegisterNo(ctx, class.ID, row.RegisterNo)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check register number")
		}
		if exists {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d: %s already registered", i+1, row.RegisterNo))
			continue
		}
		seen[row.RegisterNo] = true

		student := models.Student{ClassID: class.ID, RegisterNo: row.RegisterNo, Name: row.Name}
		if row.Phone != "" {
			phone := row.Phone
			student.Phone = &phone
		}
		if row.ParentPhone != "" {
			parent := row.ParentPhone
			student.ParentPhone = &parent
		}
		batch = append(batch, student)
	}

	if len(batch) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid student rows found in the attached file")
	}
	if err := s.students.BulkInsert(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save students")
	}
	result.Added = len(batch)
	s.logger.Info("students imported",
		zap.String("class_id", class.ID),
		zap.Int("added", result.Added),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func pick(row map[string]string, keys ...string) string {
	for _, key := range keys {
		if v, ok := row[key]; ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
