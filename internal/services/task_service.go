package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go-todo-web/internal/models"
	"go-todo-web/internal/repositories"
)

const (
	maxTitleLength       = 255
	maxDescriptionLength = 1000
)

// TaskService はタスク関連のビジネスロジックを扱います。
// すべての操作は所有ユーザーで絞り込まれます。
type TaskService struct {
	taskRepo repositories.TaskRepository
}

// NewTaskService は新しいTaskServiceを作成します。
func NewTaskService(taskRepo repositories.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

// AuthorizeUser はトークンのユーザーとパスのユーザーが一致するか確認します。
func AuthorizeUser(tokenUserID, pathUserID int) error {
	if tokenUserID != pathUserID {
		return ErrForbidden
	}
	return nil
}

func validateTask(title string, description *string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("Task title is required and cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return invalid(fmt.Sprintf("Task title cannot exceed %d characters", maxTitleLength))
	}
	if description != nil && utf8.RuneCountInString(*description) > maxDescriptionLength {
		return invalid(fmt.Sprintf("Task description cannot exceed %d characters", maxDescriptionLength))
	}
	return nil
}

// ListTasks はユーザーのタスクを作成順に返します。
func (s *TaskService) ListTasks(ctx context.Context, userID int) ([]*models.Task, error) {
	return s.taskRepo.FindByUserID(ctx, userID)
}

// GetTask はユーザーが所有するタスクを1件返します。
func (s *TaskService) GetTask(ctx context.Context, id, userID int) (*models.Task, error) {
	return s.taskRepo.FindByID(ctx, id, userID)
}

// CreateTask は新しいタスクを作成します。
func (s *TaskService) CreateTask(ctx context.Context, userID int, in models.TaskInput) (*models.Task, error) {
	if err := validateTask(in.Title, in.Description); err != nil {
		return nil, err
	}
	return s.taskRepo.Create(ctx, &models.Task{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Completed:   in.Completed,
		UserID:      userID,
	})
}

// UpdateTask は指定された項目だけを更新します。
func (s *TaskService) UpdateTask(ctx context.Context, id, userID int, upd models.TaskUpdate) (*models.Task, error) {
	existing, err := s.taskRepo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	upd.Apply(existing)
	if err := validateTask(existing.Title, existing.Description); err != nil {
		return nil, err
	}
	existing.UserID = userID // 元の所有者を保持
	return s.taskRepo.Update(ctx, existing)
}

// ToggleTask は完了状態を反転します。
func (s *TaskService) ToggleTask(ctx context.Context, id, userID int) (*models.Task, error) {
	return s.taskRepo.ToggleCompleted(ctx, id, userID)
}

// DeleteTask はタスクを削除します。
func (s *TaskService) DeleteTask(ctx context.Context, id, userID int) error {
	return s.taskRepo.Delete(ctx, id, userID)
}
