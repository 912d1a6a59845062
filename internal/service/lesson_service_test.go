package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdrive/driveschool-api/internal/models"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
)

type mockLessonRepo struct {
	lessons map[string]map[int]models.Lesson
}

func newMockLessonRepo(studentID string, count int) *mockLessonRepo {
	byNumber := make(map[int]models.Lesson, count)
	for n := 1; n <= count; n++ {
		byNumber[n] = models.Lesson{
			ID:           fmt.Sprintf("lesson-%d", n),
			StudentID:    studentID,
			LessonNumber: n,
		}
	}
	return &mockLessonRepo{lessons: map[string]map[int]models.Lesson{studentID: byNumber}}
}

func (m *mockLessonRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Lesson, error) {
	byNumber := m.lessons[studentID]
	out := make([]models.Lesson, 0, len(byNumber))
	for n := 1; n <= len(byNumber); n++ {
		out = append(out, byNumber[n])
	}
	return out, nil
}

func (m *mockLessonRepo) Find(ctx context.Context, studentID string, lessonNumber int) (*models.Lesson, error) {
	if l, ok := m.lessons[studentID][lessonNumber]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonRepo) SetCompletion(ctx context.Context, studentID string, lessonNumber int, completed bool, completedAt *time.Time, instructorID *string, notes string) error {
	l, ok := m.lessons[studentID][lessonNumber]
	if !ok {
		return sql.ErrNoRows
	}
	l.Completed = completed
	l.CompletedAt = completedAt
	l.InstructorID = instructorID
	l.Notes = notes
	m.lessons[studentID][lessonNumber] = l
	return nil
}

func (m *mockLessonRepo) CreateBatch(ctx context.Context, studentID string, count int) error {
	byNumber := make(map[int]models.Lesson, count)
	for n := 1; n <= count; n++ {
		byNumber[n] = models.Lesson{StudentID: studentID, LessonNumber: n}
	}
	m.lessons[studentID] = byNumber
	return nil
}

type mockStudentReader struct {
	students map[string]models.StudentDetail
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentReader) FindByPhone(ctx context.Context, phone string) (*models.StudentDetail, error) {
	for _, s := range m.students {
		if s.Phone == phone {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockActivity struct {
	recorded []models.ActivityType
	titles   []string
}

func (m *mockActivity) Record(ctx context.Context, kind models.ActivityType, title, description string) {
	m.recorded = append(m.recorded, kind)
	m.titles = append(m.titles, title)
}

func studentWithBalance(balance int64) map[string]models.StudentDetail {
	return map[string]models.StudentDetail{
		"stud-1": {
			Student: models.Student{
				ID:        "stud-1",
				FirstName: "Amina",
				LastName:  "Odhiambo",
				Phone:     "254700000001",
				CourseFee: 11000,
				TotalPaid: 11000 - balance,
				Balance:   balance,
			},
		},
	}
}

func TestLessonMarkBelowThresholdWithBalance(t *testing.T) {
	repo := newMockLessonRepo("stud-1", 15)
	students := &mockStudentReader{students: studentWithBalance(5000)}
	activity := &mockActivity{}
	svc := NewLessonService(repo, students, activity, nil, nil)

	lesson, err := svc.Mark(context.Background(), "stud-1", MarkLessonRequest{LessonNumber: 12, Completed: true})
	require.NoError(t, err)
	assert.True(t, lesson.Completed)
	assert.NotNil(t, lesson.CompletedAt)
	assert.Equal(t, []models.ActivityType{models.ActivityLessonCompleted}, activity.recorded)
}

func TestLessonMarkLockedWithBalance(t *testing.T) {
	repo := newMockLessonRepo("stud-1", 15)
	students := &mockStudentReader{students: studentWithBalance(1)}
	svc := NewLessonService(repo, students, &mockActivity{}, nil, nil)

	_, err := svc.Mark(context.Background(), "stud-1", MarkLessonRequest{LessonNumber: 13, Completed: true})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPaymentRequired.Code, appErr.Code)
	assert.Equal(t, int64(1), appErr.Details["balance"])

	// Nothing was written.
	stored, _ := repo.Find(context.Background(), "stud-1", 13)
	assert.False(t, stored.Completed)
}

func TestLessonMarkLockedWithClearedBalance(t *testing.T) {
	repo := newMockLessonRepo("stud-1", 15)
	students := &mockStudentReader{students: studentWithBalance(0)}
	svc := NewLessonService(repo, students, &mockActivity{}, nil, nil)

	lesson, err := svc.Mark(context.Background(), "stud-1", MarkLessonRequest{LessonNumber: 15, Completed: true})
	require.NoError(t, err)
	assert.True(t, lesson.Completed)
}

func TestLessonUnmarkNeverGated(t *testing.T) {
	repo := newMockLessonRepo("stud-1", 15)
	ts := time.Now().UTC()
	l := repo.lessons["stud-1"][14]
	l.Completed = true
	l.CompletedAt = &ts
	repo.lessons["stud-1"][14] = l

	students := &mockStudentReader{students: studentWithBalance(8000)}
	activity := &mockActivity{}
	svc := NewLessonService(repo, students, activity, nil, nil)

	lesson, err := svc.Mark(context.Background(), "stud-1", MarkLessonRequest{LessonNumber: 14, Completed: false})
	require.NoError(t, err)
	assert.False(t, lesson.Completed)
	assert.Nil(t, lesson.CompletedAt)
	assert.Empty(t, activity.recorded)
}

func TestLessonMarkUnknownStudent(t *testing.T) {
	repo := newMockLessonRepo("stud-1", 15)
	students := &mockStudentReader{students: map[string]models.StudentDetail{}}
	svc := NewLessonService(repo, students, &mockActivity{}, nil, nil)

	_, err := svc.Mark(context.Background(), "missing", MarkLessonRequest{LessonNumber: 1, Completed: true})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestLessonMarkAlreadyCompletedNoDuplicateActivity(t *testing.T) {
	repo := newMockLessonRepo("stud-1", 15)
	ts := time.Now().UTC()
	l := repo.lessons["stud-1"][3]
	l.Completed = true
	l.CompletedAt = &ts
	repo.lessons["stud-1"][3] = l

	students := &mockStudentReader{students: studentWithBalance(0)}
	activity := &mockActivity{}
	svc := NewLessonService(repo, students, activity, nil, nil)

	marked, err := svc.Mark(context.Background(), "stud-1", MarkLessonRequest{LessonNumber: 3, Completed: true})
	require.NoError(t, err)
	assert.Empty(t, activity.recorded)

	// The original completion timestamp survives the re-mark.
	require.NotNil(t, marked.CompletedAt)
	assert.Equal(t, ts, *marked.CompletedAt)
	stored, _ := repo.Find(context.Background(), "stud-1", 3)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, ts, *stored.CompletedAt)
}

func TestLessonBulkReplace(t *testing.T) {
	repo := newMockLessonRepo("stud-1", 15)
	ts := time.Now().UTC().Add(-24 * time.Hour)
	l := repo.lessons["stud-1"][1]
	l.Completed = true
	l.CompletedAt = &ts
	repo.lessons["stud-1"][1] = l

	students := &mockStudentReader{students: studentWithBalance(0)}
	activity := &mockActivity{}
	svc := NewLessonService(repo, students, activity, nil, nil)

	updates := []models.LessonUpdate{
		{LessonNumber: 1, Completed: true},
		{LessonNumber: 2, Completed: true},
		{LessonNumber: 3, Completed: true},
	}
	lessons, err := svc.BulkReplace(context.Background(), BulkLessonRequest{Phone: "254700000001", Lessons: updates})
	require.NoError(t, err)
	require.Len(t, lessons, 15)
	assert.True(t, lessons[0].Completed)
	assert.True(t, lessons[2].Completed)
	assert.False(t, lessons[3].Completed)

	// One activity per newly-completed lesson; lesson 1 was already done.
	assert.Len(t, activity.recorded, 2)

	// The original completion timestamp survives the replacement.
	assert.Equal(t, ts, *lessons[0].CompletedAt)
}

func TestLessonBulkReplaceGateBlocksWholeBatch(t *testing.T) {
	repo := newMockLessonRepo("stud-1", 15)
	students := &mockStudentReader{students: studentWithBalance(2000)}
	svc := NewLessonService(repo, students, &mockActivity{}, nil, nil)

	updates := []models.LessonUpdate{
		{LessonNumber: 5, Completed: true},
		{LessonNumber: 13, Completed: true},
	}
	_, err := svc.BulkReplace(context.Background(), BulkLessonRequest{Phone: "254700000001", Lessons: updates})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPaymentRequired.Code, appErr.Code)

	// The pre-check rejected the batch before any write.
	stored, _ := repo.Find(context.Background(), "stud-1", 5)
	assert.False(t, stored.Completed)
}

func TestLessonDisplayLocked(t *testing.T) {
	// The display lock starts one lesson earlier than the write gate.
	assert.False(t, LessonDisplayLocked(12, 5000))
	assert.True(t, LessonDisplayLocked(13, 5000))
	assert.False(t, LessonDisplayLocked(13, 0))
	assert.False(t, LessonDisplayLocked(15, -100))
}
