package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdrive/driveschool-api/internal/models"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
)

type mockStudentRepo struct {
	students  map[string]models.Student
	idNumbers map[string]bool
	statuses  map[string]models.StudentStatus
	createErr error
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{
		students:  make(map[string]models.Student),
		idNumbers: make(map[string]bool),
		statuses:  make(map[string]models.StudentStatus),
	}
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	out := make([]models.StudentDetail, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, models.StudentDetail{Student: s})
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return &models.StudentDetail{Student: s, CourseName: "Class B Standard", CourseType: "Class B"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByPhone(ctx context.Context, phone string) (*models.StudentDetail, error) {
	for _, s := range m.students {
		if s.Phone == phone {
			return &models.StudentDetail{Student: s}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error) {
	return m.idNumbers[idNumber], nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	if student.ID == "" {
		student.ID = "stud-1"
	}
	m.students[student.ID] = *student
	m.idNumbers[student.IDNumber] = true
	return nil
}

func (m *mockStudentRepo) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	m.statuses[id] = status
	return nil
}

type mockCourseReader struct {
	courses map[string]models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func classBCourse() map[string]models.Course {
	return map[string]models.Course{
		"course-b": {
			ID:              "course-b",
			Name:            "Class B Standard",
			Type:            "Class B",
			NumberOfLessons: 15,
			Fee:             11000,
			Active:          true,
		},
	}
}

func validRegistration() RegisterStudentRequest {
	return RegisterStudentRequest{
		FirstName: "Grace",
		LastName:  "Wanjiru",
		Email:     "grace@example.com",
		Phone:     "254711000222",
		IDNumber:  "30123456",
		CourseID:  "course-b",
		Branch:    "Westlands",
	}
}

func TestStudentRegister(t *testing.T) {
	repo := newMockStudentRepo()
	lessons := newMockLessonRepo("unused", 0)
	activity := &mockActivity{}
	notifier := &mockNotifier{}
	svc := NewStudentService(repo, &mockCourseReader{courses: classBCourse()}, lessons, activity, notifier, nil, nil)

	student, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.Equal(t, models.StudentActive, student.Status)
	assert.Equal(t, int64(11000), student.CourseFee)
	assert.Equal(t, int64(0), student.TotalPaid)
	assert.Equal(t, int64(11000), student.Balance)

	// 15 lesson slots were initialized.
	assert.Len(t, lessons.lessons[student.ID], 15)
	assert.Equal(t, []models.ActivityType{models.ActivityRegistration}, activity.recorded)
	assert.Equal(t, []string{student.ID}, notifier.welcomes)
}

func TestStudentRegisterDuplicateIDNumber(t *testing.T) {
	repo := newMockStudentRepo()
	repo.idNumbers["30123456"] = true
	svc := NewStudentService(repo, &mockCourseReader{courses: classBCourse()}, newMockLessonRepo("unused", 0), &mockActivity{}, nil, nil, nil)

	_, err := svc.Register(context.Background(), validRegistration())
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "DUPLICATE", appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestStudentRegisterDuplicateRace(t *testing.T) {
	// A concurrent registration can pass the exists check and lose to the
	// unique index; the constraint violation must still come back DUPLICATE.
	repo := newMockStudentRepo()
	repo.createErr = &pq.Error{Code: "23505", Constraint: "students_id_number_key"}
	svc := NewStudentService(repo, &mockCourseReader{courses: classBCourse()}, newMockLessonRepo("unused", 0), &mockActivity{}, nil, nil, nil)

	_, err := svc.Register(context.Background(), validRegistration())
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "DUPLICATE", appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestStudentRegisterUnknownCourse(t *testing.T) {
	svc := NewStudentService(newMockStudentRepo(), &mockCourseReader{courses: map[string]models.Course{}}, newMockLessonRepo("unused", 0), &mockActivity{}, nil, nil, nil)

	req := validRegistration()
	req.CourseID = "missing"
	_, err := svc.Register(context.Background(), req)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentRegisterInactiveCourse(t *testing.T) {
	courses := classBCourse()
	c := courses["course-b"]
	c.Active = false
	courses["course-b"] = c

	svc := NewStudentService(newMockStudentRepo(), &mockCourseReader{courses: courses}, newMockLessonRepo("unused", 0), &mockActivity{}, nil, nil, nil)

	_, err := svc.Register(context.Background(), validRegistration())
	require.Error(t, err)
}

func TestStudentGetDerivesPaymentStatusAndLocks(t *testing.T) {
	repo := newMockStudentRepo()
	repo.students["stud-1"] = models.Student{
		ID:        "stud-1",
		FirstName: "Grace",
		Status:    models.StudentActive,
		CourseFee: 11000,
		TotalPaid: 4000,
		Balance:   7000,
	}
	lessons := newMockLessonRepo("stud-1", 15)
	svc := NewStudentService(repo, &mockCourseReader{courses: classBCourse()}, lessons, &mockActivity{}, nil, nil, nil)

	detail, err := svc.Get(context.Background(), "stud-1")
	require.NoError(t, err)

	assert.Equal(t, PaymentStatusUnpaid, detail.PaymentStatus)
	require.Len(t, detail.Lessons, 15)
	assert.False(t, detail.Lessons[11].Locked) // lesson 12
	assert.True(t, detail.Lessons[12].Locked)  // lesson 13
	assert.True(t, detail.Lessons[14].Locked)  // lesson 15
}

func TestStudentGetCompletedWhenAllLessonsDone(t *testing.T) {
	repo := newMockStudentRepo()
	repo.students["stud-1"] = models.Student{
		ID:        "stud-1",
		Status:    models.StudentActive,
		CourseFee: 11000,
		TotalPaid: 11000,
		Balance:   0,
	}
	lessons := newMockLessonRepo("stud-1", 15)
	ts := time.Now().UTC()
	for n := 1; n <= 15; n++ {
		l := lessons.lessons["stud-1"][n]
		l.Completed = true
		l.CompletedAt = &ts
		lessons.lessons["stud-1"][n] = l
	}
	svc := NewStudentService(repo, &mockCourseReader{courses: classBCourse()}, lessons, &mockActivity{}, nil, nil, nil)

	detail, err := svc.Get(context.Background(), "stud-1")
	require.NoError(t, err)
	assert.Equal(t, models.StudentCompleted, detail.Status)
	assert.Equal(t, PaymentStatusPaid, detail.PaymentStatus)
}

func TestStudentUpdateStatus(t *testing.T) {
	repo := newMockStudentRepo()
	repo.students["stud-1"] = models.Student{ID: "stud-1", Status: models.StudentActive}
	svc := NewStudentService(repo, &mockCourseReader{}, newMockLessonRepo("stud-1", 1), &mockActivity{}, nil, nil, nil)

	require.NoError(t, svc.UpdateStatus(context.Background(), "stud-1", models.StudentDropped))
	assert.Equal(t, models.StudentDropped, repo.statuses["stud-1"])

	err := svc.UpdateStatus(context.Background(), "stud-1", "paused")
	require.Error(t, err)

	err = svc.UpdateStatus(context.Background(), "missing", models.StudentDropped)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
