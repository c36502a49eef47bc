package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"go-todo-web/internal/models"
)

// ErrTaskNotFound はタスクが見つからない、または他のユーザーのタスクである場合のエラーです。
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository はタスクの永続化を抽象化します。
// すべての操作は所有ユーザーIDで絞り込まれます。
type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) (*models.Task, error)
	FindByUserID(ctx context.Context, userID int) ([]*models.Task, error)
	FindByID(ctx context.Context, id, userID int) (*models.Task, error)
	Update(ctx context.Context, t *models.Task) (*models.Task, error)
	ToggleCompleted(ctx context.Context, id, userID int) (*models.Task, error)
	Delete(ctx context.Context, id, userID int) error
}

// MySQLTaskRepo はMySQLを使ったTaskRepositoryです。
type MySQLTaskRepo struct {
	DB *sql.DB
}

// NewMySQLTaskRepo は新しいMySQLTaskRepoインスタンスを作成します。
func NewMySQLTaskRepo(db *sql.DB) *MySQLTaskRepo {
	return &MySQLTaskRepo{DB: db}
}

const selectTaskColumns = "SELECT id, user_id, title, description, due_date, completed, created_at, updated_at FROM tasks"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t           models.Task
		description sql.NullString
		dueDate     sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &description, &dueDate, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	if dueDate.Valid {
		y, m, d := dueDate.Time.Date()
		date := models.NewDate(y, m, d)
		t.DueDate = &date
	}
	return &t, nil
}

func dueDateArg(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.Format(models.DateLayout)
}

func descriptionArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Create は新しいタスクをデータベースに挿入します。
func (r *MySQLTaskRepo) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	query := "INSERT INTO tasks (user_id, title, description, due_date, completed) VALUES (?, ?, ?, ?, ?)"

	result, err := r.DB.ExecContext(ctx, query, t.UserID, t.Title, descriptionArg(t.Description), dueDateArg(t.DueDate), t.Completed)
	if err != nil {
		log.Printf("Failed to insert task: %v", err)
		return nil, fmt.Errorf("could not insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}

	// タイムスタンプはDBが設定するので取り直す
	return r.FindByID(ctx, int(id), t.UserID)
}

// FindByUserID は指定ユーザーのタスクを作成順に取得します。
func (r *MySQLTaskRepo) FindByUserID(ctx context.Context, userID int) ([]*models.Task, error) {
	rows, err := r.DB.QueryContext(ctx, selectTaskColumns+" WHERE user_id = ? ORDER BY id ASC", userID)
	if err != nil {
		log.Printf("Failed to query tasks: %v", err)
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			log.Printf("Failed to scan task: %v", err)
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// FindByID は指定ユーザーが所有する指定IDのタスクを取得します。
func (r *MySQLTaskRepo) FindByID(ctx context.Context, id, userID int) (*models.Task, error) {
	t, err := scanTask(r.DB.QueryRowContext(ctx, selectTaskColumns+" WHERE id = ? AND user_id = ?", id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		log.Printf("Failed to query task by ID: %v", err)
		return nil, fmt.Errorf("could not query task: %w", err)
	}
	return t, nil
}

// Update はタスクの編集可能な項目を書き換え、updated_at を更新します。
func (r *MySQLTaskRepo) Update(ctx context.Context, t *models.Task) (*models.Task, error) {
	query := "UPDATE tasks SET title = ?, description = ?, due_date = ?, completed = ?, updated_at = CURRENT_TIMESTAMP(6) WHERE id = ? AND user_id = ?"

	// 値が変わらない場合 RowsAffected は0になるため、存在確認は取り直しで行う
	if _, err := r.DB.ExecContext(ctx, query, t.Title, descriptionArg(t.Description), dueDateArg(t.DueDate), t.Completed, t.ID, t.UserID); err != nil {
		log.Printf("Failed to update task: %v", err)
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	return r.FindByID(ctx, t.ID, t.UserID)
}

// ToggleCompleted は完了状態を反転します。
func (r *MySQLTaskRepo) ToggleCompleted(ctx context.Context, id, userID int) (*models.Task, error) {
	query := "UPDATE tasks SET completed = NOT completed, updated_at = CURRENT_TIMESTAMP(6) WHERE id = ? AND user_id = ?"

	result, err := r.DB.ExecContext(ctx, query, id, userID)
	if err != nil {
		log.Printf("Failed to toggle task: %v", err)
		return nil, fmt.Errorf("could not toggle task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrTaskNotFound
	}

	return r.FindByID(ctx, id, userID)
}

// Delete は指定ユーザーが所有する指定IDのタスクを削除します。
func (r *MySQLTaskRepo) Delete(ctx context.Context, id, userID int) error {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		log.Printf("Failed to delete task: %v", err)
		return fmt.Errorf("could not delete task: %w", err)
	}

	// 削除された行数を確認
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrTaskNotFound
	}

	return nil
}
