package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-todo-web/internal/models"
	"go-todo-web/internal/repositories"
	"go-todo-web/internal/services"
)

// TaskHandler はタスク関連のハンドラーを管理します。
// ルートは /:user_id/tasks 配下で、パスのユーザーIDはトークンのユーザーと一致する必要があります。
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler は新しいTaskHandlerを作成します。
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// authorizedUserID はパスのuser_idを検証し、トークンのユーザーと一致すればそのIDを返します。
func authorizedUserID(c *gin.Context) (int, bool) {
	tokenUserID, ok := currentUserID(c)
	if !ok {
		return 0, false
	}
	pathUserID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		detail(c, http.StatusBadRequest, "Invalid user ID format")
		return 0, false
	}
	if err := services.AuthorizeUser(tokenUserID, pathUserID); err != nil {
		detail(c, http.StatusForbidden, "Not authorized to access this user's tasks")
		return 0, false
	}
	return pathUserID, true
}

func taskID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("task_id"))
	if err != nil {
		detail(c, http.StatusBadRequest, "Invalid task ID format")
		return 0, false
	}
	return id, true
}

func respondTaskError(c *gin.Context, err error, fallback string) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		detail(c, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, repositories.ErrTaskNotFound):
		detail(c, http.StatusNotFound, "Task not found")
	default:
		detail(c, http.StatusInternalServerError, fallback)
	}
}

// GetTasksHandler はユーザーのタスク一覧を返します。
func (h *TaskHandler) GetTasksHandler(c *gin.Context) {
	userID, ok := authorizedUserID(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), userID)
	if err != nil {
		respondTaskError(c, err, "Failed to fetch tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTaskHandler は指定IDのタスクを返します。
func (h *TaskHandler) GetTaskHandler(c *gin.Context) {
	userID, ok := authorizedUserID(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), id, userID)
	if err != nil {
		respondTaskError(c, err, "Failed to fetch task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateTaskHandler は新しいタスクを作成します。
func (h *TaskHandler) CreateTaskHandler(c *gin.Context) {
	userID, ok := authorizedUserID(c)
	if !ok {
		return
	}

	var in models.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, in)
	if err != nil {
		respondTaskError(c, err, "Failed to create task")
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTaskHandler は送られた項目だけを更新します。
func (h *TaskHandler) UpdateTaskHandler(c *gin.Context) {
	userID, ok := authorizedUserID(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	var upd models.TaskUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), id, userID, upd)
	if err != nil {
		respondTaskError(c, err, "Failed to update task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// ToggleTaskHandler は完了状態を反転します。
func (h *TaskHandler) ToggleTaskHandler(c *gin.Context) {
	userID, ok := authorizedUserID(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := h.taskService.ToggleTask(c.Request.Context(), id, userID)
	if err != nil {
		respondTaskError(c, err, "Failed to update task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTaskHandler はタスクを削除します。
func (h *TaskHandler) DeleteTaskHandler(c *gin.Context) {
	userID, ok := authorizedUserID(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), id, userID); err != nil {
		respondTaskError(c, err, "Failed to delete task")
		return
	}
	c.Status(http.StatusNoContent)
}
