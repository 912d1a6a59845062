package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/swiftdrive/driveschool-api/internal/models"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
}

// CreateCourseRequest defines a new licence programme. The fee is not
// client-supplied; it is derived from the course type.
type CreateCourseRequest struct {
	Name            string `json:"name" validate:"required"`
	Type            string `json:"type" validate:"required"`
	DurationWeeks   int    `json:"duration_weeks" validate:"required,gt=0"`
	NumberOfLessons int    `json:"number_of_lessons" validate:"required,gt=0"`
}

// UpdateCourseRequest adjusts programme details. Type (and so fee) is fixed
// after creation.
type UpdateCourseRequest struct {
	Name            string `json:"name" validate:"required"`
	DurationWeeks   int    `json:"duration_weeks" validate:"required,gt=0"`
	NumberOfLessons int    `json:"number_of_lessons" validate:"required,gt=0"`
	Active          *bool  `json:"active"`
}

// CourseService manages the licence programme catalogue.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns courses, optionally restricted to active ones.
func (s *CourseService) List(ctx context.Context, activeOnly bool) ([]models.Course, error) {
	courses, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// Get returns one course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a programme with its fee resolved from the course type.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	fee, err := ResolveFee(req.Type)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Name:            req.Name,
		Type:            req.Type,
		DurationWeeks:   req.DurationWeeks,
		NumberOfLessons: req.NumberOfLessons,
		Fee:             fee,
		Active:          true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("type", course.Type),
		zap.Int64("fee", course.Fee),
	)
	return course, nil
}

// Update edits programme details. Enrolled students keep their snapshotted
// fee regardless of catalogue edits.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	course.Name = req.Name
	course.DurationWeeks = req.DurationWeeks
	course.NumberOfLessons = req.NumberOfLessons
	if req.Active != nil {
		course.Active = *req.Active
	}
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}
