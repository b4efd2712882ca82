package service

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

type facultyRepository interface {
	FindByPhone(ctx context.Context, phone string) (*models.Faculty, error)
}

type classRepository interface {
	FindByName(ctx context.Context, facultyID, nameQuery string) (*models.Class, error)
}

type subjectRepository interface {
	FindByName(ctx context.Context, classID, facultyID, name string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
}

// ResolverService turns the free-text identifiers carried by commands into
// stored entities: the sender into a faculty, a class name into one class
// owned by that faculty, and a subject name into a subject row that is
// created on first use.
type ResolverService struct {
	faculties facultyRepository
	classes   classRepository
	subjects  subjectRepository
	logger    *zap.Logger
}

// NewResolverService constructs the resolver.
func NewResolverService(faculties facultyRepository, classes classRepository, subjects subjectRepository, logger *zap.Logger) *ResolverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolverService{faculties: faculties, classes: classes, subjects: subjects, logger: logger}
}

// ResolveFaculty maps a sender handle to a registered faculty.
func (s *ResolverService) ResolveFaculty(ctx context.Context, phone string) (*models.Faculty, error) {
	faculty, err := s.faculties.FindByPhone(ctx, phone)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrUnauthorizedSender, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve sender")
	}
	return faculty, nil
}

// ResolveClass finds the class a command refers to, scoped to the faculty.
// Exact matches beat substring matches; no match is a user-facing not-found.
func (s *ResolverService) ResolveClass(ctx context.Context, facultyID, className string) (*models.Class, error) {
	name := strings.TrimSpace(className)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class name is required")
	}
	class, err := s.classes.FindByName(ctx, facultyID, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no class named '"+name+"' found for you")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve class")
	}
	return class, nil
}

// ResolveOrCreateSubject returns the subject row for a name within a class,
// creating it on first mention. An empty name means no subject for the slot.
func (s *ResolverService) ResolveOrCreateSubject(ctx context.Context, classID, facultyID, name string) (*models.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	subject, err := s.subjects.FindByName(ctx, classID, facultyID, name)
	if err == nil {
		return subject, nil
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
	}
	subject = &models.Subject{ClassID: classID, FacultyID: facultyID, Name: name}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.logger.Info("subject created", zap.String("class_id", classID), zap.String("name", name))
	return subject, nil
}
