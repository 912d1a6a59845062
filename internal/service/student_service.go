package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/swiftdrive/driveschool-api/internal/models"
	"github.com/swiftdrive/driveschool-api/internal/repository"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByPhone(ctx context.Context, phone string) (*models.StudentDetail, error)
	ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type lessonInitializer interface {
	CreateBatch(ctx context.Context, studentID string, count int) error
	ListByStudent(ctx context.Context, studentID string) ([]models.Lesson, error)
}

type activityRecorder interface {
	Record(ctx context.Context, kind models.ActivityType, title, description string)
}

type welcomeNotifier interface {
	StudentRegistered(student *models.Student, courseName string)
}

// RegisterStudentRequest is the public self-service enrollment payload.
type RegisterStudentRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	IDNumber  string `json:"idNumber" validate:"required"`
	CourseID  string `json:"courseId" validate:"required"`
	Branch    string `json:"branch" validate:"required"`
}

// StudentService handles enrollment and student lookups.
type StudentService struct {
	repo      studentRepository
	courses   courseReader
	lessons   lessonInitializer
	activity  activityRecorder
	notifier  welcomeNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, courses courseReader, lessons lessonInitializer, activity activityRecorder, notifier welcomeNotifier, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, courses: courses, lessons: lessons, activity: activity, notifier: notifier, validator: validate, logger: logger}
}

// Register enrolls a new student: snapshots the course fee, initializes the
// full set of lesson slots, and records the event.
func (s *StudentService) Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	exists, err := s.repo.ExistsByIDNumber(ctx, req.IDNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate id number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "a student with this ID number is already registered")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not open for enrollment")
	}

	student := &models.Student{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		IDNumber:  req.IDNumber,
		CourseID:  course.ID,
		Branch:    req.Branch,
		Status:    models.StudentActive,
		CourseFee: course.Fee,
		TotalPaid: 0,
		Balance:   course.Fee,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		// A concurrent registration with the same id number can slip past
		// the exists check; the unique index reports it instead.
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "a student with this ID number is already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	if err := s.lessons.CreateBatch(ctx, student.ID, course.NumberOfLessons); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialize lessons")
	}

	s.activity.Record(ctx, models.ActivityRegistration,
		"New student registration",
		fmt.Sprintf("%s %s enrolled in %s", student.FirstName, student.LastName, course.Name))

	if s.notifier != nil {
		s.notifier.StudentRegistered(student, course.Name)
	}

	return student, nil
}

// List returns students and pagination metadata, with payment status
// derived on the way out.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	for i := range students {
		students[i].PaymentStatus = ClassifyPaymentStatus(students[i].Balance, students[i].CourseFee)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns a student with lessons and derived status.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return s.decorate(ctx, student)
}

// GetByPhone returns a student looked up by phone number.
func (s *StudentService) GetByPhone(ctx context.Context, phone string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return s.decorate(ctx, student)
}

// decorate attaches lesson views, the display-side lock flags, payment
// status, and the read-time completed status.
func (s *StudentService) decorate(ctx context.Context, student *models.StudentDetail) (*models.StudentDetail, error) {
	lessons, err := s.lessons.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}

	student.PaymentStatus = ClassifyPaymentStatus(student.Balance, student.CourseFee)
	student.Lessons = make([]models.LessonView, 0, len(lessons))
	allComplete := len(lessons) > 0
	for _, l := range lessons {
		if !l.Completed {
			allComplete = false
		}
		student.Lessons = append(student.Lessons, models.LessonView{
			LessonNumber: l.LessonNumber,
			Completed:    l.Completed,
			CompletedAt:  l.CompletedAt,
			InstructorID: l.InstructorID,
			Notes:        l.Notes,
			Locked:       LessonDisplayLocked(l.LessonNumber, student.Balance),
		})
	}
	if allComplete && student.Status == models.StudentActive {
		student.Status = models.StudentCompleted
	}
	return student, nil
}

// UpdateStatus explicitly transitions a student's lifecycle state.
func (s *StudentService) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	switch status {
	case models.StudentActive, models.StudentCompleted, models.StudentDropped:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown student status")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	return nil
}
