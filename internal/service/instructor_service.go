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

type instructorRepository interface {
	List(ctx context.Context, branch string, activeOnly bool) ([]models.InstructorDetail, error)
	FindByID(ctx context.Context, id string) (*models.InstructorDetail, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	Update(ctx context.Context, instructor *models.Instructor) error
}

// CreateInstructorRequest assigns a staff user to teaching duty.
type CreateInstructorRequest struct {
	UserID          string   `json:"user_id" validate:"required"`
	Specializations []string `json:"specializations" validate:"required,min=1"`
	Branch          string   `json:"branch" validate:"required"`
}

// UpdateInstructorRequest adjusts an instructor's assignment.
type UpdateInstructorRequest struct {
	Specializations []string `json:"specializations" validate:"required,min=1"`
	Branch          string   `json:"branch" validate:"required"`
	Active          *bool    `json:"active"`
}

// InstructorService manages the teaching roster.
type InstructorService struct {
	repo      instructorRepository
	users     userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstructorService constructs an InstructorService.
func NewInstructorService(repo instructorRepository, users userRepository, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns instructors, optionally filtered by branch.
func (s *InstructorService) List(ctx context.Context, branch string, activeOnly bool) ([]models.InstructorDetail, error) {
	instructors, err := s.repo.List(ctx, branch, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	if instructors == nil {
		instructors = []models.InstructorDetail{}
	}
	return instructors, nil
}

// Get returns one instructor with their user details.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.InstructorDetail, error) {
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	return instructor, nil
}

// Create puts a staff user on the roster. The user must exist and hold the
// instructor role.
func (s *InstructorService) Create(ctx context.Context, req CreateInstructorRequest) (*models.InstructorDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user does not hold the instructor role")
	}

	instructor := &models.Instructor{
		UserID:          req.UserID,
		Specializations: req.Specializations,
		Branch:          req.Branch,
		Active:          true,
	}
	if err := s.repo.Create(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instructor")
	}

	s.logger.Info("instructor added",
		zap.String("instructor_id", instructor.ID),
		zap.String("user_id", user.ID),
		zap.String("branch", instructor.Branch),
	)
	return s.Get(ctx, instructor.ID)
}

// Update changes an instructor's branch, specializations or active flag.
func (s *InstructorService) Update(ctx context.Context, id string, req UpdateInstructorRequest) (*models.InstructorDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	instructor := current.Instructor
	instructor.Specializations = req.Specializations
	instructor.Branch = req.Branch
	if req.Active != nil {
		instructor.Active = *req.Active
	}
	if err := s.repo.Update(ctx, &instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update instructor")
	}
	return s.Get(ctx, id)
}
