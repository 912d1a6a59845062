package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdrive/driveschool-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "email", "phone", "id_number", "course_id", "branch",
		"status", "course_fee", "total_paid", "balance", "created_at", "updated_at",
		"course_name", "course_type",
	}).AddRow("stud-1", "Amina", "Odhiambo", "amina@example.com", "254700000001", "30123456", "course-b", "Westlands",
		"active", int64(11000), int64(4000), int64(7000), now, now,
		"Class B", "B")
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT s.id, .+ FROM students s JOIN courses c ON c.id = s.course_id WHERE 1=1 AND s.branch = \\$1 ORDER BY s.created_at DESC LIMIT 20 OFFSET 0").
		WithArgs("Westlands").
		WillReturnRows(studentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s JOIN courses c ON c.id = s.course_id WHERE 1=1 AND s.branch = $1")).
		WithArgs("Westlands").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Branch: "Westlands"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Class B", students[0].CourseName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListRejectsUnknownSortColumn(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	// An unrecognized sort key must fall back to created_at, never be
	// interpolated into the query.
	mock.ExpectQuery("ORDER BY s.created_at DESC LIMIT 20 OFFSET 0").
		WillReturnRows(studentRows())
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.StudentFilter{SortBy: "balance; DROP TABLE students"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), "Amina", "Odhiambo", "amina@example.com", "254700000001", "30123456", "course-b", "Westlands", "active", int64(11000), int64(0), int64(11000), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		FirstName: "Amina",
		LastName:  "Odhiambo",
		Email:     "amina@example.com",
		Phone:     "254700000001",
		IDNumber:  "30123456",
		CourseID:  "course-b",
		Branch:    "Westlands",
		Status:    models.StudentActive,
		CourseFee: 11000,
		Balance:   11000,
	}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateSurfacesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "students_id_number_key"})

	err := repo.Create(context.Background(), &models.Student{IDNumber: "30123456"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryApplyPayment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students")).
		WithArgs("stud-1", int64(4000), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"total_paid", "balance"}).AddRow(int64(4000), int64(7000)))

	totalPaid, balance, err := repo.ApplyPayment(context.Background(), "stud-1", 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), totalPaid)
	assert.Equal(t, int64(7000), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByIDNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE id_number = $1 LIMIT 1")).
		WithArgs("30123456").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE id_number = $1 LIMIT 1")).
		WithArgs("99999999").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsByIDNumber(context.Background(), "30123456")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByIDNumber(context.Background(), "99999999")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET status").
		WithArgs("stud-1", models.StudentDropped, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "stud-1", models.StudentDropped)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
