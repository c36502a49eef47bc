package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todo-web/internal/models"
)

func newTaskRepoWithMock(t *testing.T) (*MySQLTaskRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLTaskRepo(db), mock
}

var taskColumns = []string{"id", "user_id", "title", "description", "due_date", "completed", "created_at", "updated_at"}

func strPtr(s string) *string { return &s }

func TestMySQLTaskRepo_Create(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	due := models.NewDate(2024, 5, 31)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks (user_id, title, description, due_date, completed) VALUES (?, ?, ?, ?, ?)")).
		WithArgs(1, "Buy milk", "Semi-skimmed", "2024-05-31", false).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectTaskColumns + " WHERE id = ? AND user_id = ?")).
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(3, 1, "Buy milk", "Semi-skimmed", due.Time, false, now, now))

	got, err := repo.Create(context.Background(), &models.Task{
		UserID:      1,
		Title:       "Buy milk",
		Description: strPtr("Semi-skimmed"),
		DueDate:     &due,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.ID)
	require.NotNil(t, got.Description)
	assert.Equal(t, "Semi-skimmed", *got.Description)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2024-05-31", got.DueDate.String())
	assert.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLTaskRepo_Create_NullOptionalFields(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(1, "Plain", nil, nil, true).
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectQuery("FROM tasks WHERE id").
		WithArgs(4, 1).
		WillReturnRows(sqlmock.NewRows(taskColumns).AddRow(4, 1, "Plain", nil, nil, true, now, now))

	got, err := repo.Create(context.Background(), &models.Task{UserID: 1, Title: "Plain", Completed: true})
	require.NoError(t, err)
	assert.Nil(t, got.Description)
	assert.Nil(t, got.DueDate)
	assert.True(t, got.Completed)
}

func TestMySQLTaskRepo_FindByUserID(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(selectTaskColumns + " WHERE user_id = ? ORDER BY id ASC")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(1, 1, "First", nil, nil, false, now, now).
			AddRow(2, 1, "Second", "desc", nil, true, now, now))

	tasks, err := repo.FindByUserID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "First", tasks[0].Title)
	assert.Equal(t, "Second", tasks[1].Title)
	assert.True(t, tasks[1].Completed)
}

func TestMySQLTaskRepo_FindByUserID_Empty(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectQuery("FROM tasks WHERE user_id").WithArgs(5).WillReturnRows(sqlmock.NewRows(taskColumns))

	tasks, err := repo.FindByUserID(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestMySQLTaskRepo_FindByID_OtherUser(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectQuery("FROM tasks WHERE id").WithArgs(1, 2).WillReturnRows(sqlmock.NewRows(taskColumns))

	_, err := repo.FindByID(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestMySQLTaskRepo_Update(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET title = ?, description = ?, due_date = ?, completed = ?, updated_at = CURRENT_TIMESTAMP(6) WHERE id = ? AND user_id = ?")).
		WithArgs("Renamed", nil, nil, true, 9, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM tasks WHERE id").
		WithArgs(9, 1).
		WillReturnRows(sqlmock.NewRows(taskColumns).AddRow(9, 1, "Renamed", nil, nil, true, created, updated))

	got, err := repo.Update(context.Background(), &models.Task{ID: 9, UserID: 1, Title: "Renamed", Completed: true})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, updated, got.UpdatedAt)
}

func TestMySQLTaskRepo_ToggleCompleted(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET completed = NOT completed")).
		WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM tasks WHERE id").
		WithArgs(2, 1).
		WillReturnRows(sqlmock.NewRows(taskColumns).AddRow(2, 1, "T", nil, nil, true, now, now))

	got, err := repo.ToggleCompleted(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.True(t, got.Completed)
}

func TestMySQLTaskRepo_ToggleCompleted_NotFound(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectExec("UPDATE tasks SET completed").WithArgs(2, 1).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.ToggleCompleted(context.Background(), 2, 1)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestMySQLTaskRepo_Delete(t *testing.T) {
	repo, mock := newTaskRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = ? AND user_id = ?")).
		WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 2, 1))
	require.ErrorIs(t, repo.Delete(context.Background(), 2, 1), ErrTaskNotFound)
}
