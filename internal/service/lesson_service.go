package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/swiftdrive/driveschool-api/internal/models"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
)

// The legacy system used 13 on the completion write path but 12 on the
// display path. Both are kept: collapsing them would silently change either
// what users see or what they can do. See DESIGN.md.
const (
	lessonLockThreshold    = 13
	lessonVisibleThreshold = 12
)

// LessonDisplayLocked is the read-side lock flag for lesson listings.
func LessonDisplayLocked(lessonNumber int, balance int64) bool {
	return lessonNumber > lessonVisibleThreshold && balance > 0
}

type lessonRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Lesson, error)
	Find(ctx context.Context, studentID string, lessonNumber int) (*models.Lesson, error)
	SetCompletion(ctx context.Context, studentID string, lessonNumber int, completed bool, completedAt *time.Time, instructorID *string, notes string) error
}

type lessonStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByPhone(ctx context.Context, phone string) (*models.StudentDetail, error)
}

// MarkLessonRequest mutates one lesson slot.
type MarkLessonRequest struct {
	LessonNumber int     `json:"lessonNumber" validate:"required,min=1"`
	Completed    bool    `json:"completed"`
	InstructorID *string `json:"instructor,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// BulkLessonRequest replaces a student's full lesson array, keyed by phone.
type BulkLessonRequest struct {
	Phone   string                `json:"phone" validate:"required"`
	Lessons []models.LessonUpdate `json:"lessons" validate:"required,min=1,dive"`
}

type lessonObserver interface {
	ObserveLessonCompleted()
}

// LessonService enforces the payment-gated lesson progress rules.
type LessonService struct {
	lessons   lessonRepository
	students  lessonStudentReader
	activity  activityRecorder
	metrics   lessonObserver
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// WithMetrics attaches a completion counter. Optional; nil leaves
// completions uncounted.
func (s *LessonService) WithMetrics(m lessonObserver) *LessonService {
	s.metrics = m
	return s
}

// NewLessonService constructs the lesson service.
func NewLessonService(lessons lessonRepository, students lessonStudentReader, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{
		lessons:   lessons,
		students:  students,
		activity:  activity,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Mark sets or clears a lesson's completion. Completing a lesson at or past
// the lock threshold requires a cleared balance; un-marking is never gated.
func (s *LessonService) Mark(ctx context.Context, studentID string, req MarkLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	lesson, err := s.lessons.Find(ctx, studentID, req.LessonNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	if req.Completed && req.LessonNumber >= lessonLockThreshold && student.Balance > 0 {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrPaymentRequired, fmt.Sprintf("lesson %d is locked until the balance is cleared", req.LessonNumber)),
			map[string]interface{}{"balance": student.Balance},
		)
	}

	var completedAt *time.Time
	notes := req.Notes
	instructor := req.InstructorID
	if req.Completed {
		// Re-marking a completed lesson keeps its original completion date.
		if lesson.Completed && lesson.CompletedAt != nil {
			completedAt = lesson.CompletedAt
		} else {
			ts := s.now()
			completedAt = &ts
		}
	} else {
		// Un-marking clears the slot back to its scheduled state.
		instructor = nil
		notes = ""
	}

	if err := s.lessons.SetCompletion(ctx, studentID, req.LessonNumber, req.Completed, completedAt, instructor, notes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}

	if req.Completed && !lesson.Completed {
		s.activity.Record(ctx, models.ActivityLessonCompleted,
			"Lesson completed",
			fmt.Sprintf("%s %s completed lesson %d", student.FirstName, student.LastName, req.LessonNumber))
		if s.metrics != nil {
			s.metrics.ObserveLessonCompleted()
		}
	}

	lesson.Completed = req.Completed
	lesson.CompletedAt = completedAt
	lesson.InstructorID = instructor
	lesson.Notes = notes
	return lesson, nil
}

// BulkReplace applies a wholesale lesson-array replacement for the student
// identified by phone number, emitting one activity per newly-completed
// lesson. The payment gate applies to any newly-completed locked lesson.
func (s *LessonService) BulkReplace(ctx context.Context, req BulkLessonRequest) ([]models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk lesson payload")
	}

	student, err := s.students.FindByPhone(ctx, req.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	prior, err := s.lessons.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	priorByNumber := make(map[int]models.Lesson, len(prior))
	for _, l := range prior {
		priorByNumber[l.LessonNumber] = l
	}

	for _, update := range req.Lessons {
		before, ok := priorByNumber[update.LessonNumber]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("lesson %d not found", update.LessonNumber))
		}
		if update.Completed && !before.Completed && update.LessonNumber >= lessonLockThreshold && student.Balance > 0 {
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrPaymentRequired, fmt.Sprintf("lesson %d is locked until the balance is cleared", update.LessonNumber)),
				map[string]interface{}{"balance": student.Balance},
			)
		}
	}

	now := s.now()
	var newlyCompleted []int
	for _, update := range req.Lessons {
		before := priorByNumber[update.LessonNumber]

		var completedAt *time.Time
		if update.Completed {
			if before.Completed && before.CompletedAt != nil {
				completedAt = before.CompletedAt
			} else {
				ts := now
				completedAt = &ts
			}
		}

		if err := s.lessons.SetCompletion(ctx, student.ID, update.LessonNumber, update.Completed, completedAt, update.InstructorID, update.Notes); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lessons")
		}
		if update.Completed && !before.Completed {
			newlyCompleted = append(newlyCompleted, update.LessonNumber)
		}
	}

	for _, n := range newlyCompleted {
		s.activity.Record(ctx, models.ActivityLessonCompleted,
			"Lesson completed",
			fmt.Sprintf("%s %s completed lesson %d", student.FirstName, student.LastName, n))
		if s.metrics != nil {
			s.metrics.ObserveLessonCompleted()
		}
	}

	updated, err := s.lessons.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload lessons")
	}
	return updated, nil
}
