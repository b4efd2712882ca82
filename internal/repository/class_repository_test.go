package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classRows(id, facultyID, name string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "faculty_id", "name", "created_at"}).
		AddRow(id, facultyID, name, time.Now())
}

func TestClassRepositoryFindByNameExact(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(`LOWER\(name\) = LOWER\(\$2\)`).
		WithArgs("fac-1", "CSE-A").
		WillReturnRows(classRows("class-1", "fac-1", "CSE-A"))

	class, err := repo.FindByName(context.Background(), "fac-1", "CSE-A")
	require.NoError(t, err)
	assert.Equal(t, "class-1", class.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByNameFallsBackToSubstring(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(`LOWER\(name\) = LOWER\(\$2\)`).
		WithArgs("fac-1", "cse").
		WillReturnRows(sqlmock.NewRows([]string{"id", "faculty_id", "name", "created_at"}))
	mock.ExpectQuery(`name ILIKE`).
		WithArgs("fac-1", "cse").
		WillReturnRows(classRows("class-1", "fac-1", "CSE-A"))

	class, err := repo.FindByName(context.Background(), "fac-1", "cse")
	require.NoError(t, err)
	assert.Equal(t, "CSE-A", class.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM classes`).
		WithArgs("fac-1", "CSE-A").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "fac-1", "CSE-A")
	require.NoError(t, err)
	assert.True(t, exists)
}
